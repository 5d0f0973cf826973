package health

import (
	"fmt"
	"math"
	"sort"
	"time"

	"tankcore/pkg/domain"
	"tankcore/pkg/ranges"
)

// absoluteZero lists parameters where any measurable amount is toxic.
var absoluteZero = map[string]bool{
	domain.ParamAmmonia: true,
	domain.ParamNitrite: true,
}

type sample struct {
	value float64
	at    time.Time
}

// latestValues picks, per parameter, the value from the newest reading that
// measured it. Readings without a timestamp or older than the staleness
// window are ignored, as are non-finite values. Keys are matched by their
// canonical parameter name.
func latestValues(readings []domain.WaterTest, ref time.Time, staleAfter time.Duration) map[string]sample {
	ordered := make([]domain.WaterTest, 0, len(readings))
	for _, r := range readings {
		if r.RecordedAt.IsZero() {
			continue
		}
		if staleAfter > 0 && !ref.IsZero() && ref.Sub(r.RecordedAt) > staleAfter {
			continue
		}
		ordered = append(ordered, r)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.After(ordered[j].RecordedAt)
	})
	out := make(map[string]sample)
	for _, r := range ordered {
		for label, v := range r.Values {
			if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
				continue
			}
			name := domain.ParameterName(label)
			if _, seen := out[name]; seen {
				continue
			}
			out[name] = sample{value: *v, at: r.RecordedAt}
		}
	}
	return out
}

type parameterCheck struct{}

func (parameterCheck) evaluate(ctx *evalContext) []Finding {
	latest := latestValues(ctx.in.Readings, ctx.ref, ctx.policy.StaleAfter)
	units := ctx.in.Units
	findings := make([]Finding, 0, ctx.table.Len())
	for _, r := range ctx.table.Ranges() {
		f := Finding{Category: CategoryParameters, Subject: r.Parameter}
		s, ok := latest[r.Parameter]
		switch {
		case !ok:
			f.Severity = SeverityWarning
			f.Code = CodeNoRecentData
			f.Message = fmt.Sprintf("no recent %s reading", r.Parameter)
		case !r.Bounded():
			f.Severity = SeverityOK
			f.Code = CodeUntracked
			f.Message = fmt.Sprintf("%s is %s", r.Parameter, reading(r, s.value, units))
		case r.Contains(s.value):
			f.Severity = SeverityOK
			f.Code = CodeInRange
			f.Message = fmt.Sprintf("%s %s within %s", r.Parameter, reading(r, s.value, units), ranges.Format(r, units))
		default:
			f.Severity = SeverityWarning
			if absoluteZero[r.Parameter] || r.Deviation(s.value) > tolerance(r, ctx.policy.ToleranceFraction) {
				f.Severity = SeverityCritical
			}
			f.Code = CodeOutOfRange
			f.Message = fmt.Sprintf("%s %s outside %s", r.Parameter, reading(r, s.value, units), ranges.Format(r, units))
		}
		findings = append(findings, f)
	}
	return findings
}

// tolerance is how far outside the band a reading may drift before it is
// treated as critical.
func tolerance(r ranges.IdealRange, fraction float64) float64 {
	switch {
	case r.Min != nil && r.Max != nil:
		return (*r.Max - *r.Min) * fraction
	case r.Max != nil:
		return math.Abs(*r.Max) * fraction
	case r.Min != nil:
		return math.Abs(*r.Min) * fraction
	default:
		return math.Inf(1)
	}
}

func reading(r ranges.IdealRange, v float64, units ranges.UnitSystem) string {
	if r.Parameter == domain.ParamTemperature && units == ranges.Metric {
		return ranges.FormatValue(r.Parameter, v, units)
	}
	out := ranges.FormatValue(r.Parameter, v, units)
	if r.Unit != "" && r.Unit != "pH" {
		out += " " + r.Unit
	}
	return out
}
