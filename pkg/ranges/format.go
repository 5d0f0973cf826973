package ranges

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tankcore/pkg/domain"
)

// UnitSystem selects how temperatures are rendered. Ranges are always
// resolved in Fahrenheit; conversion happens only when formatting.
type UnitSystem string

// Supported unit systems.
const (
	Imperial UnitSystem = "imperial"
	Metric   UnitSystem = "metric"
)

// ParseUnitSystem maps a configuration value to a UnitSystem, defaulting to
// Imperial for anything unrecognised.
func ParseUnitSystem(s string) UnitSystem {
	if strings.EqualFold(strings.TrimSpace(s), string(Metric)) {
		return Metric
	}
	return Imperial
}

// FahrenheitToCelsius converts a temperature reading.
func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

// CelsiusToFahrenheit converts a temperature reading.
func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

// Convert returns the range expressed in the requested unit system.
func Convert(r IdealRange, units UnitSystem) IdealRange {
	if units != Metric || r.Parameter != domain.ParamTemperature {
		return r
	}
	out := r
	out.Unit = "°C"
	if r.Min != nil {
		v := FahrenheitToCelsius(*r.Min)
		out.Min = &v
	}
	if r.Max != nil {
		v := FahrenheitToCelsius(*r.Max)
		out.Max = &v
	}
	return out
}

// Format renders a range for display, e.g. "6.5–7.5 pH", "≤ 40 ppm" or
// "0 ppm (must be 0)".
func Format(r IdealRange, units UnitSystem) string {
	r = Convert(r, units)
	var b strings.Builder
	switch {
	case r.Exact():
		b.WriteString(num(*r.Min))
	case r.Min != nil && r.Max != nil:
		b.WriteString(num(*r.Min))
		b.WriteString("–")
		b.WriteString(num(*r.Max))
	case r.Max != nil:
		b.WriteString("≤ ")
		b.WriteString(num(*r.Max))
	case r.Min != nil:
		b.WriteString("≥ ")
		b.WriteString(num(*r.Min))
	}
	if r.Bounded() && r.Unit != "" {
		b.WriteString(" ")
		b.WriteString(r.Unit)
	}
	if r.Note != "" {
		if b.Len() > 0 {
			fmt.Fprintf(&b, " (%s)", r.Note)
		} else {
			b.WriteString(r.Note)
		}
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// FormatValue renders a single reading of parameter in the requested units.
func FormatValue(parameter string, v float64, units UnitSystem) string {
	if parameter == domain.ParamTemperature && units == Metric {
		return strconv.FormatFloat(FahrenheitToCelsius(v), 'f', 1, 64) + " °C"
	}
	return num(v)
}
