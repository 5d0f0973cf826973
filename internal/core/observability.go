package core

import (
	"context"
	"time"

	"tankcore/internal/blob"
	"tankcore/pkg/health"
	"tankcore/pkg/ranges"
)

// Clock supplies the current time to the service.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Logger is the narrow logging surface used by the service. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AuditStatus is the outcome of an audited operation.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry records one mutating service call.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for mutating operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes the duration and outcome of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// HealthRecorder is implemented by metrics recorders that also track
// evaluated scores.
type HealthRecorder interface {
	ObserveHealth(ctx context.Context, tankID string, score health.Score)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan ends an operation started by a Tracer.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type serviceOptions struct {
	clock     Clock
	logger    Logger
	audit     AuditRecorder
	metrics   MetricsRecorder
	tracer    Tracer
	blobs     blob.Store
	policy    *health.Policy
	units     ranges.UnitSystem
	urlExpiry time.Duration
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		units:   ranges.Imperial,
	}
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*serviceOptions)

// WithClock overrides the clock used for health reference times and audit
// timestamps.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder sets the audit sink for mutating operations.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the span factory.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithBlobStore enables tank photo attachments.
func WithBlobStore(store blob.Store) ServiceOption {
	return func(o *serviceOptions) {
		o.blobs = store
	}
}

// WithHealthPolicy replaces the default scoring policy. The policy is
// validated by NewService.
func WithHealthPolicy(policy health.Policy) ServiceOption {
	return func(o *serviceOptions) {
		p := policy
		o.policy = &p
	}
}

// WithUnits selects how finding messages and ranges render temperatures.
func WithUnits(units ranges.UnitSystem) ServiceOption {
	return func(o *serviceOptions) {
		o.units = ranges.ParseUnitSystem(string(units))
	}
}

// WithPhotoURLExpiry sets the lifetime of presigned photo URLs.
func WithPhotoURLExpiry(d time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.urlExpiry = d
	}
}

type operationMeta struct {
	entity EntityType
	action Action
}

var operationMetadata = map[string]operationMeta{
	"create_tank":           {EntityTank, ActionCreate},
	"update_tank":           {EntityTank, ActionUpdate},
	"delete_tank":           {EntityTank, ActionDelete},
	"record_water_test":     {EntityWaterTest, ActionCreate},
	"delete_water_test":     {EntityWaterTest, ActionDelete},
	"record_maintenance":    {EntityMaintenance, ActionCreate},
	"delete_maintenance":    {EntityMaintenance, ActionDelete},
	"add_livestock":         {EntityLivestock, ActionCreate},
	"update_livestock":      {EntityLivestock, ActionUpdate},
	"remove_livestock":      {EntityLivestock, ActionDelete},
	"add_equipment":         {EntityEquipment, ActionCreate},
	"update_equipment":      {EntityEquipment, ActionUpdate},
	"remove_equipment":      {EntityEquipment, ActionDelete},
	"start_setup":           {EntitySetupSession, ActionCreate},
	"answer_setup_step":     {EntitySetupSession, ActionUpdate},
	"invalidate_setup_step": {EntitySetupSession, ActionUpdate},
	"complete_setup":        {EntitySetupSession, ActionUpdate},
	"attach_tank_photo":     {EntityTank, ActionUpdate},
}
