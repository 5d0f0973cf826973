package health

import (
	"errors"
	"fmt"
	"time"

	"tankcore/pkg/domain"
)

const day = 24 * time.Hour

// MaintenanceExpectation names a recurring task and how often it is due.
type MaintenanceExpectation struct {
	Type     domain.MaintenanceType `json:"type"`
	Interval time.Duration          `json:"interval"`
	// ReefOnly restricts the expectation to reef tanks.
	ReefOnly bool `json:"reef_only,omitempty"`
}

// ConsumableLifespan is the service interval of an equipment type whose
// parts wear out.
type ConsumableLifespan struct {
	Type     string        `json:"type"`
	Lifespan time.Duration `json:"lifespan"`
}

// Policy holds the tunable weights and thresholds of the aggregator.
type Policy struct {
	WarningPenalty   int `json:"warning_penalty"`
	CriticalPenalty  int `json:"critical_penalty"`
	NoHistoryPenalty int `json:"no_history_penalty"`
	// ToleranceFraction scales the band width (or the bound itself for
	// one-sided ranges) to decide when an out-of-range reading is critical.
	ToleranceFraction float64 `json:"tolerance_fraction"`
	// StaleAfter drops readings older than this from the latest-value
	// lookup. Zero keeps every reading.
	StaleAfter  time.Duration            `json:"stale_after"`
	Maintenance []MaintenanceExpectation `json:"maintenance"`
	Consumables []ConsumableLifespan     `json:"consumables"`
	// Stocking guidelines in gallons of water per inch of adult fish.
	FreshwaterGallonsPerInch float64 `json:"freshwater_gallons_per_inch"`
	SaltwaterGallonsPerInch  float64 `json:"saltwater_gallons_per_inch"`
}

// DefaultPolicy returns the stock weights used by Evaluate.
func DefaultPolicy() Policy {
	return Policy{
		WarningPenalty:    5,
		CriticalPenalty:   20,
		NoHistoryPenalty:  10,
		ToleranceFraction: 0.25,
		StaleAfter:        30 * day,
		Maintenance: []MaintenanceExpectation{
			{Type: domain.MaintenanceWaterChange, Interval: 14 * day},
			{Type: domain.MaintenanceFilter, Interval: 30 * day},
			{Type: domain.MaintenanceDosing, Interval: 7 * day, ReefOnly: true},
		},
		Consumables: []ConsumableLifespan{
			{Type: domain.EquipmentFilterMedia, Lifespan: 60 * day},
			{Type: domain.EquipmentRODI, Lifespan: 180 * day},
			{Type: domain.EquipmentUV, Lifespan: 365 * day},
		},
		FreshwaterGallonsPerInch: 1,
		SaltwaterGallonsPerInch:  3,
	}
}

// Validate rejects weights that would let a worse finding raise the score.
func (p Policy) Validate() error {
	var errs []error
	if p.WarningPenalty < 0 || p.CriticalPenalty < 0 || p.NoHistoryPenalty < 0 {
		errs = append(errs, errors.New("penalties must not be negative"))
	}
	if p.CriticalPenalty <= p.WarningPenalty {
		errs = append(errs, fmt.Errorf("critical penalty %d must exceed warning penalty %d", p.CriticalPenalty, p.WarningPenalty))
	}
	if p.NoHistoryPenalty <= p.WarningPenalty {
		errs = append(errs, fmt.Errorf("no-history penalty %d must exceed warning penalty %d", p.NoHistoryPenalty, p.WarningPenalty))
	}
	if p.NoHistoryPenalty >= p.CriticalPenalty {
		errs = append(errs, fmt.Errorf("no-history penalty %d must be below critical penalty %d", p.NoHistoryPenalty, p.CriticalPenalty))
	}
	if p.ToleranceFraction < 0 {
		errs = append(errs, errors.New("tolerance fraction must not be negative"))
	}
	if p.StaleAfter < 0 {
		errs = append(errs, errors.New("stale-after window must not be negative"))
	}
	if p.FreshwaterGallonsPerInch <= 0 || p.SaltwaterGallonsPerInch <= 0 {
		errs = append(errs, errors.New("stocking guidelines must be positive"))
	}
	for _, m := range p.Maintenance {
		if m.Type == "" || m.Interval <= 0 {
			errs = append(errs, fmt.Errorf("maintenance expectation %q needs a type and positive interval", m.Type))
		}
	}
	for _, c := range p.Consumables {
		if c.Type == "" || c.Lifespan <= 0 {
			errs = append(errs, fmt.Errorf("consumable %q needs a type and positive lifespan", c.Type))
		}
	}
	return errors.Join(errs...)
}

func (p Policy) clone() Policy {
	out := p
	out.Maintenance = append([]MaintenanceExpectation(nil), p.Maintenance...)
	out.Consumables = append([]ConsumableLifespan(nil), p.Consumables...)
	return out
}

func (p Policy) penalty(f Finding) int {
	switch f.Severity {
	case SeverityCritical:
		return p.CriticalPenalty
	case SeverityWarning:
		if f.Code == CodeNoHistory {
			return p.NoHistoryPenalty
		}
		return p.WarningPenalty
	default:
		return 0
	}
}

func (p Policy) gallonsPerInch(c domain.Classification) float64 {
	if c.Saltwater() {
		return p.SaltwaterGallonsPerInch
	}
	return p.FreshwaterGallonsPerInch
}
