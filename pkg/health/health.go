// Package health scores a tank's current state against the ideal envelope for
// its classification. Scoring is pure: callers supply every record and the
// reference time, and the score is recomputed on demand rather than stored.
package health

import (
	"time"

	"tankcore/pkg/domain"
	"tankcore/pkg/ranges"
)

// Severity grades a single finding.
type Severity string

// Finding severities in increasing order of concern.
const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Category groups findings by the input stream that produced them.
type Category string

// Finding categories in report order.
const (
	CategoryParameters  Category = "parameters"
	CategoryMaintenance Category = "maintenance"
	CategoryLivestock   Category = "livestock"
	CategoryEquipment   Category = "equipment"
)

// Categories lists the finding categories in report order.
var Categories = []Category{CategoryParameters, CategoryMaintenance, CategoryLivestock, CategoryEquipment}

// Finding codes identify the observation independent of its message text.
const (
	CodeInRange            = "parameter.in_range"
	CodeOutOfRange         = "parameter.out_of_range"
	CodeNoRecentData       = "parameter.no_recent_data"
	CodeUntracked          = "parameter.untracked"
	CodeNoHistory          = "maintenance.no_history"
	CodeMaintenanceMissing = "maintenance.missing"
	CodeMaintenanceOverdue = "maintenance.overdue"
	CodeMaintenanceCurrent = "maintenance.current"
	CodeNoLivestock        = "livestock.none"
	CodeHabitatMismatch    = "livestock.habitat_mismatch"
	CodeOverstocked        = "livestock.overstocked"
	CodeStockingOK         = "livestock.stocking_ok"
	CodeLivestockRecorded  = "livestock.recorded"
	CodeNoEquipment        = "equipment.none"
	CodeMissingEssential   = "equipment.missing_essential"
	CodeConsumableOverdue  = "equipment.consumable_overdue"
	CodeEquipmentRecorded  = "equipment.recorded"
)

// Finding is one flagged observation contributing to the health score.
type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Subject  string   `json:"subject,omitempty"`
	Message  string   `json:"message"`
}

// Score is the result of one evaluation pass.
type Score struct {
	Overall        int                   `json:"overall"`
	Findings       []Finding             `json:"findings"`
	Classification domain.Classification `json:"classification"`
	ReferenceTime  time.Time             `json:"reference_time"`
}

// Count returns the number of findings with the given severity.
func (s Score) Count(sev Severity) int {
	n := 0
	for _, f := range s.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// Worst returns the most severe finding severity, or ok when there are none.
func (s Score) Worst() Severity {
	worst := SeverityOK
	for _, f := range s.Findings {
		if f.Severity.rank() > worst.rank() {
			worst = f.Severity
		}
	}
	return worst
}

// ByCategory returns the findings of one category in report order.
func (s Score) ByCategory(cat Category) []Finding {
	var out []Finding
	for _, f := range s.Findings {
		if f.Category == cat {
			out = append(out, f)
		}
	}
	return out
}

// Input carries the four data streams and the context needed to score them.
type Input struct {
	Classification domain.Classification
	VolumeGallons  float64
	Readings       []domain.WaterTest
	Maintenance    []domain.MaintenanceEvent
	Livestock      []domain.LivestockEntry
	Equipment      []domain.EquipmentEntry
	// Now is the reference time for recency checks. When zero, the latest
	// timestamp found in the inputs is used.
	Now time.Time
	// Units selects how values are rendered in finding messages.
	Units ranges.UnitSystem
}

// ForTank builds an Input from a tank record and its roster streams.
func ForTank(tank domain.Tank, readings []domain.WaterTest, maintenance []domain.MaintenanceEvent, livestock []domain.LivestockEntry, equipment []domain.EquipmentEntry) Input {
	return Input{
		Classification: tank.Classification(),
		VolumeGallons:  tank.VolumeGallons,
		Readings:       readings,
		Maintenance:    maintenance,
		Livestock:      livestock,
		Equipment:      equipment,
	}
}

func (in Input) referenceTime() time.Time {
	if !in.Now.IsZero() {
		return in.Now
	}
	var ref time.Time
	bump := func(t time.Time) {
		if t.After(ref) {
			ref = t
		}
	}
	for _, r := range in.Readings {
		bump(r.RecordedAt)
	}
	for _, m := range in.Maintenance {
		bump(m.PerformedAt)
	}
	for _, l := range in.Livestock {
		bump(l.AddedAt)
	}
	for _, e := range in.Equipment {
		bump(e.ServicedAt())
	}
	return ref
}

// Aggregator scores inputs under a fixed policy.
type Aggregator struct {
	policy Policy
	checks []check
}

// New constructs an aggregator, rejecting policies that would break score
// monotonicity.
func New(policy Policy) (*Aggregator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		policy: policy.clone(),
		checks: []check{parameterCheck{}, maintenanceCheck{}, livestockCheck{}, equipmentCheck{}},
	}, nil
}

// Policy returns a copy of the aggregator's policy.
func (a *Aggregator) Policy() Policy { return a.policy.clone() }

var defaultAggregator = func() *Aggregator {
	a, err := New(DefaultPolicy())
	if err != nil {
		panic(err)
	}
	return a
}()

// Evaluate scores in with the default policy.
func Evaluate(in Input) Score { return defaultAggregator.Score(in) }

// Score evaluates every stream and returns the combined health score.
// Findings are ordered parameters, maintenance, livestock, equipment.
func (a *Aggregator) Score(in Input) Score {
	ctx := &evalContext{
		in:     in,
		policy: a.policy,
		table:  ranges.Resolve(in.Classification),
		ref:    in.referenceTime(),
	}
	var findings []Finding
	for _, c := range a.checks {
		findings = append(findings, c.evaluate(ctx)...)
	}
	return Score{
		Overall:        a.overall(findings),
		Findings:       findings,
		Classification: in.Classification,
		ReferenceTime:  ctx.ref,
	}
}

// Penalty returns the score deduction for a single finding.
func (a *Aggregator) Penalty(f Finding) int {
	return a.policy.penalty(f)
}

func (a *Aggregator) overall(findings []Finding) int {
	total := 100
	for _, f := range findings {
		total -= a.policy.penalty(f)
	}
	if total < 0 {
		return 0
	}
	return total
}

type evalContext struct {
	in     Input
	policy Policy
	table  ranges.Table
	ref    time.Time
}

// age returns how long ago t was relative to the reference time.
func (c *evalContext) age(t time.Time) time.Duration {
	if c.ref.IsZero() || t.IsZero() {
		return 0
	}
	return c.ref.Sub(t)
}

type check interface {
	evaluate(ctx *evalContext) []Finding
}
