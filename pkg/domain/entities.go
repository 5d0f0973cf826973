// Package domain defines the aquarium records, value types, and rule
// evaluation primitives shared by tankcore's evaluators and stores.
package domain

import (
	"sort"
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityTank identifies an aquarium record.
	EntityTank EntityType = "tank"
	// EntityWaterTest identifies a water-parameter reading.
	EntityWaterTest EntityType = "water_test"
	// EntityMaintenance identifies a maintenance event.
	EntityMaintenance EntityType = "maintenance_event"
	// EntityLivestock identifies a livestock roster entry.
	EntityLivestock EntityType = "livestock"
	// EntityEquipment identifies an equipment roster entry.
	EntityEquipment EntityType = "equipment"
	// EntitySetupSession identifies a persisted setup wizard session.
	EntitySetupSession EntityType = "setup_session"
)

// Water parameter names used as reading keys and range table keys.
const (
	ParamTemperature = "temperature"
	ParamPH          = "ph"
	ParamAmmonia     = "ammonia"
	ParamNitrite     = "nitrite"
	ParamNitrate     = "nitrate"
	ParamSalinity    = "salinity"
	ParamAlkalinity  = "alkalinity"
	ParamCalcium     = "calcium"
	ParamMagnesium   = "magnesium"
	ParamPhosphate   = "phosphate"
	ParamCO2         = "co2"
	ParamGH          = "gh"
	ParamKH          = "kh"
)

// KnownParameters lists every parameter name the evaluators understand.
var KnownParameters = []string{
	ParamTemperature, ParamPH, ParamAmmonia, ParamNitrite, ParamNitrate,
	ParamSalinity, ParamAlkalinity, ParamCalcium, ParamMagnesium, ParamPhosphate,
	ParamCO2, ParamGH, ParamKH,
}

// IsKnownParameter reports whether name is one of KnownParameters.
func IsKnownParameter(name string) bool {
	for _, p := range KnownParameters {
		if p == name {
			return true
		}
	}
	return false
}

// ParameterName returns the canonical reading key for a parameter label, so
// "pH" and " PH " both map to ParamPH.
func ParameterName(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// CanonicalValues rekeys readings by ParameterName. When two labels collide
// a measured value wins over a null one.
func CanonicalValues(values map[string]*float64) map[string]*float64 {
	if values == nil {
		return nil
	}
	out := make(map[string]*float64, len(values))
	for k, v := range values {
		name := ParameterName(k)
		if prev, ok := out[name]; ok && prev != nil && v == nil {
			continue
		}
		out[name] = v
	}
	return out
}

// MaintenanceType enumerates the recurring upkeep tasks tracked per tank.
type MaintenanceType string

// Canonical maintenance types used by the health policy.
const (
	MaintenanceWaterChange MaintenanceType = "water_change"
	MaintenanceFilter      MaintenanceType = "filter_maintenance"
	MaintenanceGlass       MaintenanceType = "glass_cleaning"
	MaintenanceDosing      MaintenanceType = "dosing"
	MaintenanceTesting     MaintenanceType = "water_testing"
	MaintenanceOther       MaintenanceType = "other"
)

var maintenanceAliases = map[string]MaintenanceType{
	"wc":              MaintenanceWaterChange,
	"water":           MaintenanceWaterChange,
	"filter":          MaintenanceFilter,
	"filter_clean":    MaintenanceFilter,
	"filter_cleaning": MaintenanceFilter,
	"glass":           MaintenanceGlass,
	"glass_clean":     MaintenanceGlass,
	"dose":            MaintenanceDosing,
	"testing":         MaintenanceTesting,
	"water_test":      MaintenanceTesting,
}

// NormalizeMaintenanceType folds a free-form maintenance label such as
// "Water Change" or "water-change" onto its canonical type.
func NormalizeMaintenanceType(label string) MaintenanceType {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(s)
	if alias, ok := maintenanceAliases[s]; ok {
		return alias
	}
	return MaintenanceType(s)
}

// Livestock categories recognised by the compatibility catalog.
const (
	LivestockFish         = "fish"
	LivestockInvertebrate = "invertebrate"
	LivestockPlant        = "plant"
	LivestockCoral        = "coral"
	LivestockAnemone      = "anemone"
	LivestockClam         = "clam"
	LivestockOther        = "other"
)

// Equipment types referenced by the equipment heuristics.
const (
	EquipmentFilter      = "filter"
	EquipmentHeater      = "heater"
	EquipmentLight       = "light"
	EquipmentPump        = "pump"
	EquipmentSkimmer     = "protein_skimmer"
	EquipmentCO2         = "co2_system"
	EquipmentUV          = "uv_sterilizer"
	EquipmentRODI        = "rodi_unit"
	EquipmentFilterMedia = "filter_media"
	EquipmentDoser       = "doser"
	EquipmentChiller     = "chiller"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tank is the aquarium whose health is evaluated.
type Tank struct {
	Base
	Name          string     `json:"name"`
	AquariumType  string     `json:"aquarium_type"`
	VolumeGallons float64    `json:"volume_gallons"`
	Notes         *string    `json:"notes,omitempty"`
	SetupAt       *time.Time `json:"setup_at,omitempty"`
}

// Classification derives the tank's water chemistry category from its type label.
func (t Tank) Classification() Classification {
	return Classify(t.AquariumType)
}

// WaterTest is a timestamped set of water parameter readings. Every value is
// optional; a nil entry means the parameter was not measured.
type WaterTest struct {
	Base
	TankID     string              `json:"tank_id"`
	RecordedAt time.Time           `json:"recorded_at"`
	Values     map[string]*float64 `json:"values"`
	Notes      *string             `json:"notes,omitempty"`
}

// Value returns the reading for name when present and non-null.
func (w WaterTest) Value(name string) (float64, bool) {
	v, ok := w.Values[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Parameters returns the names of the measured parameters in sorted order.
func (w WaterTest) Parameters() []string {
	out := make([]string, 0, len(w.Values))
	for k, v := range w.Values {
		if v != nil {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// MaintenanceEvent records upkeep performed on a tank.
type MaintenanceEvent struct {
	Base
	TankID        string          `json:"tank_id"`
	Type          MaintenanceType `json:"type"`
	PerformedAt   time.Time       `json:"performed_at"`
	VolumePercent *float64        `json:"volume_percent,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
}

// LivestockEntry is one line of a tank's livestock roster.
type LivestockEntry struct {
	Base
	TankID          string    `json:"tank_id"`
	Category        string    `json:"category"`
	Species         string    `json:"species"`
	Quantity        int       `json:"quantity"`
	AdultSizeInches *float64  `json:"adult_size_inches,omitempty"`
	AddedAt         time.Time `json:"added_at"`
}

// EquipmentEntry is one line of a tank's equipment roster.
type EquipmentEntry struct {
	Base
	TankID         string     `json:"tank_id"`
	Type           string     `json:"type"`
	Name           string     `json:"name"`
	InstalledAt    time.Time  `json:"installed_at"`
	LastServicedAt *time.Time `json:"last_serviced_at,omitempty"`
}

// ServicedAt returns the most recent service (or install) time.
func (e EquipmentEntry) ServicedAt() time.Time {
	if e.LastServicedAt != nil && e.LastServicedAt.After(e.InstalledAt) {
		return *e.LastServicedAt
	}
	return e.InstalledAt
}

// SetupProgress is the persisted state of a guided setup session: answers per
// step and the ordered list of completed step keys. Completion is advisory and
// re-validated against current applicability whenever it is read.
type SetupProgress struct {
	Answers        map[string]map[string]any `json:"answers"`
	CompletedSteps []string                  `json:"completed_steps"`
}

// Clone deep-copies the progress so callers cannot alias stored state.
func (p SetupProgress) Clone() SetupProgress {
	out := SetupProgress{
		Answers:        make(map[string]map[string]any, len(p.Answers)),
		CompletedSteps: append([]string(nil), p.CompletedSteps...),
	}
	for step, fields := range p.Answers {
		cp := make(map[string]any, len(fields))
		for k, v := range fields {
			cp[k] = v
		}
		out.Answers[step] = cp
	}
	return out
}

// SetupSession is a setup wizard run owned by one user session.
type SetupSession struct {
	Base
	Progress    SetupProgress `json:"progress"`
	TankID      *string       `json:"tank_id,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
