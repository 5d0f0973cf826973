// Package core wires the rules engine, persistence, evaluators and photo
// storage into the tankcore service.
package core

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"tankcore/internal/infra/persistence/memory"
	"tankcore/pkg/domain"
	"tankcore/pkg/health"
	"tankcore/pkg/wizard"
)

// Service exposes transactional operations over tanks and their records.
type Service struct {
	store  PersistentStore
	opts   serviceOptions
	health *health.Aggregator
	setup  *wizard.Registry
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	policy := health.DefaultPolicy()
	if o.policy != nil {
		policy = *o.policy
	}
	agg, err := health.New(policy)
	if err != nil {
		return nil, err
	}
	return &Service{store: store, opts: o, health: agg, setup: wizard.SetupRegistry()}, nil
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) (*Service, error) {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// HealthPolicy returns a copy of the active scoring policy.
func (s *Service) HealthPolicy() health.Policy { return s.health.Policy() }

func (s *Service) now() time.Time { return s.opts.clock.Now() }

// observe wraps an operation with tracing, metrics, audit and logging. fn
// returns the affected entity ID.
func (s *Service) observe(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) error {
	ctx, span := s.opts.tracer.Start(ctx, op)
	started := time.Now()
	id, err := fn(ctx)
	elapsed := time.Since(started)
	span.End(err)
	s.opts.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		s.recordAuditError(ctx, op, id, elapsed, err)
		var rv RuleViolationError
		if errors.As(err, &rv) {
			s.opts.logger.Warn("operation blocked by rules", "operation", op, "entity_id", id, "violations", len(rv.Result.Violations))
		} else {
			s.opts.logger.Error("operation failed", "operation", op, "entity_id", id, "error", err)
		}
		return err
	}
	s.recordAuditSuccess(ctx, op, id, elapsed)
	s.opts.logger.Debug("operation completed", "operation", op, "entity_id", id, "duration", elapsed)
	return nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, id string, d time.Duration) {
	s.recordAudit(ctx, op, id, d, nil)
}

func (s *Service) recordAuditError(ctx context.Context, op, id string, d time.Duration, err error) {
	s.recordAudit(ctx, op, id, d, err)
}

func (s *Service) recordAudit(ctx context.Context, op, id string, d time.Duration, err error) {
	meta, ok := operationMetadata[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  d,
		Timestamp: s.now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.opts.audit.Record(ctx, entry)
}

func (s *Service) logWarnings(op string, res Result) {
	for _, v := range res.Violations {
		if v.Severity == SeverityBlock {
			continue
		}
		s.opts.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "severity", string(v.Severity), "entity_id", v.EntityID, "message", v.Message)
	}
}

// run executes fn in a transaction under observe and logs non-blocking
// violations.
func (s *Service) run(ctx context.Context, op string, id func() string, fn func(tx Transaction) error) (Result, error) {
	var res Result
	err := s.observe(ctx, op, func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, fn)
		return id(), err
	})
	if err == nil {
		s.logWarnings(op, res)
	}
	return res, err
}

func (s *Service) requireTank(tx Transaction, id string) error {
	if _, ok := tx.FindTank(id); !ok {
		return ErrNotFound{Entity: EntityTank, ID: id}
	}
	return nil
}

func validateTank(t Tank) error {
	if strings.TrimSpace(t.Name) == "" {
		return invalid("tank name is required")
	}
	if t.VolumeGallons < 0 || math.IsNaN(t.VolumeGallons) || math.IsInf(t.VolumeGallons, 0) {
		return invalid("tank volume %v must be a non-negative number", t.VolumeGallons)
	}
	return nil
}

// CreateTank persists a new tank.
func (s *Service) CreateTank(ctx context.Context, tank Tank) (Tank, Result, error) {
	var created Tank
	res, err := s.run(ctx, "create_tank", func() string { return created.ID }, func(tx Transaction) error {
		if err := validateTank(tank); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateTank(tank)
		return err
	})
	return created, res, err
}

// UpdateTank mutates a tank using the provided mutator.
func (s *Service) UpdateTank(ctx context.Context, id string, mutator func(*Tank) error) (Tank, Result, error) {
	var updated Tank
	res, err := s.run(ctx, "update_tank", func() string { return id }, func(tx Transaction) error {
		if err := s.requireTank(tx, id); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateTank(id, func(t *Tank) error {
			if err := mutator(t); err != nil {
				return err
			}
			return validateTank(*t)
		})
		return err
	})
	return updated, res, err
}

// DeleteTank removes a tank, its child records and any attached photos.
func (s *Service) DeleteTank(ctx context.Context, id string) (Result, error) {
	res, err := s.run(ctx, "delete_tank", func() string { return id }, func(tx Transaction) error {
		if err := s.requireTank(tx, id); err != nil {
			return err
		}
		return tx.DeleteTank(id)
	})
	if err == nil {
		s.deleteTankPhotos(ctx, id)
	}
	return res, err
}

// GetTank returns a tank by ID.
func (s *Service) GetTank(id string) (Tank, error) {
	t, ok := s.store.GetTank(id)
	if !ok {
		return Tank{}, ErrNotFound{Entity: EntityTank, ID: id}
	}
	return t, nil
}

// ListTanks returns all tanks.
func (s *Service) ListTanks() []Tank { return s.store.ListTanks() }

// RecordWaterTest stores a set of readings for a tank.
func (s *Service) RecordWaterTest(ctx context.Context, test WaterTest) (WaterTest, Result, error) {
	var created WaterTest
	res, err := s.run(ctx, "record_water_test", func() string { return created.ID }, func(tx Transaction) error {
		if err := s.requireTank(tx, test.TankID); err != nil {
			return err
		}
		test.Values = domain.CanonicalValues(test.Values)
		var err error
		created, err = tx.CreateWaterTest(test)
		return err
	})
	return created, res, err
}

// DeleteWaterTest removes a water test.
func (s *Service) DeleteWaterTest(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_water_test", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteWaterTest(id)
	})
}

// ListWaterTests returns a tank's readings oldest first.
func (s *Service) ListWaterTests(tankID string) []WaterTest { return s.store.ListWaterTests(tankID) }

// RecordMaintenance stores a maintenance event.
func (s *Service) RecordMaintenance(ctx context.Context, event MaintenanceEvent) (MaintenanceEvent, Result, error) {
	var created MaintenanceEvent
	res, err := s.run(ctx, "record_maintenance", func() string { return created.ID }, func(tx Transaction) error {
		if err := s.requireTank(tx, event.TankID); err != nil {
			return err
		}
		event.Type = domain.NormalizeMaintenanceType(string(event.Type))
		if event.Type == "" {
			return invalid("maintenance type is required")
		}
		var err error
		created, err = tx.CreateMaintenanceEvent(event)
		return err
	})
	return created, res, err
}

// DeleteMaintenance removes a maintenance event.
func (s *Service) DeleteMaintenance(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_maintenance", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteMaintenanceEvent(id)
	})
}

// ListMaintenance returns a tank's maintenance history oldest first.
func (s *Service) ListMaintenance(tankID string) []MaintenanceEvent {
	return s.store.ListMaintenanceEvents(tankID)
}

func validateLivestock(l LivestockEntry) error {
	if strings.TrimSpace(l.Category) == "" || strings.TrimSpace(l.Species) == "" {
		return invalid("livestock category and species are required")
	}
	if l.Quantity < 0 {
		return invalid("livestock quantity %d must not be negative", l.Quantity)
	}
	if l.AdultSizeInches != nil && *l.AdultSizeInches < 0 {
		return invalid("adult size must not be negative")
	}
	return nil
}

// AddLivestock adds an entry to a tank's roster.
func (s *Service) AddLivestock(ctx context.Context, entry LivestockEntry) (LivestockEntry, Result, error) {
	var created LivestockEntry
	res, err := s.run(ctx, "add_livestock", func() string { return created.ID }, func(tx Transaction) error {
		if err := s.requireTank(tx, entry.TankID); err != nil {
			return err
		}
		if err := validateLivestock(entry); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateLivestock(entry)
		return err
	})
	return created, res, err
}

// UpdateLivestock mutates a roster entry.
func (s *Service) UpdateLivestock(ctx context.Context, id string, mutator func(*LivestockEntry) error) (LivestockEntry, Result, error) {
	var updated LivestockEntry
	res, err := s.run(ctx, "update_livestock", func() string { return id }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateLivestock(id, func(l *LivestockEntry) error {
			if err := mutator(l); err != nil {
				return err
			}
			return validateLivestock(*l)
		})
		return err
	})
	return updated, res, err
}

// RemoveLivestock deletes a roster entry.
func (s *Service) RemoveLivestock(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "remove_livestock", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteLivestock(id)
	})
}

// ListLivestock returns a tank's roster in the order entries were added.
func (s *Service) ListLivestock(tankID string) []LivestockEntry { return s.store.ListLivestock(tankID) }

// AddEquipment adds an entry to a tank's equipment roster. The type label is
// normalised so "Canister" and "filter" count the same.
func (s *Service) AddEquipment(ctx context.Context, entry EquipmentEntry) (EquipmentEntry, Result, error) {
	var created EquipmentEntry
	res, err := s.run(ctx, "add_equipment", func() string { return created.ID }, func(tx Transaction) error {
		if err := s.requireTank(tx, entry.TankID); err != nil {
			return err
		}
		entry.Type = health.EquipmentType(entry.Type)
		if entry.Type == "" {
			return invalid("equipment type is required")
		}
		var err error
		created, err = tx.CreateEquipment(entry)
		return err
	})
	return created, res, err
}

// UpdateEquipment mutates an equipment entry, e.g. to record a service.
func (s *Service) UpdateEquipment(ctx context.Context, id string, mutator func(*EquipmentEntry) error) (EquipmentEntry, Result, error) {
	var updated EquipmentEntry
	res, err := s.run(ctx, "update_equipment", func() string { return id }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateEquipment(id, func(e *EquipmentEntry) error {
			if err := mutator(e); err != nil {
				return err
			}
			e.Type = health.EquipmentType(e.Type)
			if e.Type == "" {
				return invalid("equipment type is required")
			}
			return nil
		})
		return err
	})
	return updated, res, err
}

// RemoveEquipment deletes an equipment entry.
func (s *Service) RemoveEquipment(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "remove_equipment", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteEquipment(id)
	})
}

// ListEquipment returns a tank's equipment roster.
func (s *Service) ListEquipment(tankID string) []EquipmentEntry { return s.store.ListEquipment(tankID) }
