package domain

import "strings"

// WaterType is the water chemistry family of a tank.
type WaterType string

// Supported water types. Reef is a saltwater-family variant.
const (
	WaterFreshwater WaterType = "freshwater"
	WaterSaltwater  WaterType = "saltwater"
	WaterReef       WaterType = "reef"
)

// IsSaltwaterFamily reports whether the water type is saltwater or one of its
// reef variants.
func (w WaterType) IsSaltwaterFamily() bool {
	return w == WaterSaltwater || w == WaterReef
}

// Classification is the derived water-chemistry category of a tank. It is
// computed once from the aquarium type label and pattern-matched by every
// consumer.
type Classification struct {
	WaterType WaterType `json:"water_type"`
	Planted   bool      `json:"is_planted"`
	Reef      bool      `json:"is_reef"`
	Coldwater bool      `json:"is_coldwater,omitempty"`
}

// DefaultClassification is the fallback for unknown labels.
var DefaultClassification = Classification{WaterType: WaterFreshwater}

// Saltwater reports whether the classification belongs to the saltwater family.
func (c Classification) Saltwater() bool {
	return c.WaterType.IsSaltwaterFamily() || c.Reef
}

// String renders a compact label such as "planted freshwater" or "reef".
func (c Classification) String() string {
	switch {
	case c.Reef:
		return string(WaterReef)
	case c.WaterType.IsSaltwaterFamily():
		return string(WaterSaltwater)
	case c.Planted:
		return "planted " + string(WaterFreshwater)
	case c.Coldwater:
		return "coldwater " + string(WaterFreshwater)
	default:
		return string(WaterFreshwater)
	}
}

var (
	freshwater = Classification{WaterType: WaterFreshwater}
	coldwater  = Classification{WaterType: WaterFreshwater, Coldwater: true}
	planted    = Classification{WaterType: WaterFreshwater, Planted: true}
	saltwater  = Classification{WaterType: WaterSaltwater}
	reef       = Classification{WaterType: WaterReef, Reef: true}
)

var knownLabels = map[string]Classification{
	"freshwater":               freshwater,
	"fresh water":              freshwater,
	"fresh":                    freshwater,
	"tropical":                 freshwater,
	"tropical freshwater":      freshwater,
	"community":                freshwater,
	"cichlid":                  freshwater,
	"coldwater":                coldwater,
	"cold water":               coldwater,
	"goldfish":                 coldwater,
	"pond":                     coldwater,
	"planted":                  planted,
	"planted freshwater":       planted,
	"planted tank":             planted,
	"aquascape":                planted,
	"nature aquarium":          planted,
	"saltwater":                saltwater,
	"salt water":               saltwater,
	"marine":                   saltwater,
	"fish only":                saltwater,
	"fowlr":                    saltwater,
	"fish only with live rock": saltwater,
	"reef":                     reef,
	"reef tank":                reef,
	"mixed reef":               reef,
	"sps":                      reef,
	"sps reef":                 reef,
	"lps reef":                 reef,
	"soft coral reef":          reef,
	"nano reef":                reef,
}

// Classify derives a Classification from a free-text aquarium type label.
// Unknown labels map to the freshwater, non-reef default.
func Classify(label string) Classification {
	norm := normalizeLabel(label)
	if c, ok := knownLabels[norm]; ok {
		return c
	}
	switch {
	case norm == "":
		return DefaultClassification
	case strings.Contains(norm, "reef") || strings.Contains(norm, "coral"):
		return reef
	case strings.Contains(norm, "salt") || strings.Contains(norm, "marine"):
		return saltwater
	case strings.Contains(norm, "planted"):
		return planted
	case strings.Contains(norm, "coldwater") || strings.Contains(norm, "cold water"):
		return coldwater
	}
	return DefaultClassification
}

func normalizeLabel(label string) string {
	norm := strings.ToLower(strings.TrimSpace(label))
	norm = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(norm)
	return strings.Join(strings.Fields(norm), " ")
}
