// Package ranges resolves the ideal water-parameter envelope for a tank
// classification.
package ranges

import (
	"tankcore/pkg/domain"
)

// IdealRange is the acceptable band for one water parameter. A nil bound is
// unbounded on that side; Min == Max denotes an exact target.
type IdealRange struct {
	Parameter string   `json:"parameter"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Unit      string   `json:"unit"`
	Note      string   `json:"note,omitempty"`
}

// Exact reports whether the range pins the parameter to a single value.
func (r IdealRange) Exact() bool {
	return r.Min != nil && r.Max != nil && *r.Min == *r.Max
}

// Bounded reports whether the range defines at least one numeric bound.
func (r IdealRange) Bounded() bool {
	return r.Min != nil || r.Max != nil
}

// Contains reports whether v lies inside the range. Ranges without bounds
// contain every value.
func (r IdealRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Deviation returns how far v lies outside the range (0 when inside).
func (r IdealRange) Deviation(v float64) float64 {
	if r.Min != nil && v < *r.Min {
		return *r.Min - v
	}
	if r.Max != nil && v > *r.Max {
		return v - *r.Max
	}
	return 0
}

// Table maps parameter names to ideal ranges and preserves insertion order.
type Table struct {
	ranges []IdealRange
	index  map[string]int
}

func newTable() *Table {
	return &Table{index: make(map[string]int)}
}

func (t *Table) add(r IdealRange) {
	if i, ok := t.index[r.Parameter]; ok {
		t.ranges[i] = r
		return
	}
	t.index[r.Parameter] = len(t.ranges)
	t.ranges = append(t.ranges, r)
}

// Get returns the range for a parameter.
func (t Table) Get(parameter string) (IdealRange, bool) {
	i, ok := t.index[parameter]
	if !ok {
		return IdealRange{}, false
	}
	return t.ranges[i], true
}

// Has reports whether the parameter has a defined target.
func (t Table) Has(parameter string) bool {
	_, ok := t.index[parameter]
	return ok
}

// Keys returns the parameter names in table order.
func (t Table) Keys() []string {
	out := make([]string, len(t.ranges))
	for i, r := range t.ranges {
		out[i] = r.Parameter
	}
	return out
}

// Ranges returns a copy of the ranges in table order.
func (t Table) Ranges() []IdealRange {
	return append([]IdealRange(nil), t.ranges...)
}

// Len returns the number of parameters in the table.
func (t Table) Len() int { return len(t.ranges) }

func bounds(lo, hi float64) (*float64, *float64) {
	return &lo, &hi
}

func upTo(hi float64) *float64 { return &hi }

func between(param, unit string, lo, hi float64) IdealRange {
	mn, mx := bounds(lo, hi)
	return IdealRange{Parameter: param, Min: mn, Max: mx, Unit: unit}
}

func mustBeZero(param string) IdealRange {
	mn, mx := bounds(0, 0)
	return IdealRange{Parameter: param, Min: mn, Max: mx, Unit: "ppm", Note: "must be 0"}
}

// Resolve returns the ideal range table for a classification. The five base
// parameters are always present; chemistry-specific parameters are added only
// when the classification makes them relevant.
func Resolve(c domain.Classification) Table {
	t := newTable()
	salt := c.Saltwater()

	switch {
	case salt:
		t.add(between(domain.ParamTemperature, "°F", 75, 80))
		t.add(between(domain.ParamPH, "pH", 8.1, 8.4))
	case c.Coldwater:
		t.add(between(domain.ParamTemperature, "°F", 60, 72))
		t.add(between(domain.ParamPH, "pH", 7.0, 8.0))
	default:
		t.add(between(domain.ParamTemperature, "°F", 72, 82))
		t.add(between(domain.ParamPH, "pH", 6.5, 7.5))
	}

	t.add(mustBeZero(domain.ParamAmmonia))
	t.add(mustBeZero(domain.ParamNitrite))

	nitrate := IdealRange{Parameter: domain.ParamNitrate, Unit: "ppm"}
	switch {
	case c.Reef:
		nitrate.Max = upTo(5)
		nitrate.Note = "keep low for coral health"
	case salt:
		nitrate.Max = upTo(20)
	default:
		nitrate.Max = upTo(40)
	}
	t.add(nitrate)

	if salt {
		t.add(between(domain.ParamSalinity, "SG", 1.023, 1.026))
		t.add(between(domain.ParamAlkalinity, "dKH", 7, 11))
	}
	if c.Reef {
		t.add(between(domain.ParamCalcium, "ppm", 380, 450))
		t.add(between(domain.ParamMagnesium, "ppm", 1250, 1400))
		phosphate := IdealRange{Parameter: domain.ParamPhosphate, Max: upTo(0.1), Unit: "ppm", Note: "lower is better for SPS"}
		t.add(phosphate)
	}
	if c.Planted && !salt {
		t.add(between(domain.ParamCO2, "ppm", 20, 30))
		t.add(between(domain.ParamGH, "dGH", 4, 12))
		t.add(between(domain.ParamKH, "dKH", 3, 8))
	}
	return *t
}
