package wizard

import (
	"tankcore/pkg/domain"
)

// Step keys of the aquarium setup flow.
const (
	StepType      = "type"
	StepSize      = "size"
	StepSalinity  = "salinity"
	StepCO2       = "co2"
	StepCoral     = "coral"
	StepEquipment = "equipment"
	StepCycling   = "cycling"
	StepLivestock = "livestock"
)

// Answer fields read by the setup flow and by tank creation.
const (
	FieldAquariumType   = "aquarium_type"
	FieldName           = "name"
	FieldVolumeGallons  = "volume_gallons"
	FieldSalinity       = "target_salinity"
	FieldCO2Method      = "method"
	FieldCoralFocus     = "focus"
	FieldFilter         = "filter"
	FieldHeater         = "heater"
	FieldLight          = "light"
	FieldSkimmer        = "protein_skimmer"
	FieldCyclingMethod  = "method"
	FieldLivestockNotes = "plan"
)

// ClassificationOf derives the tank classification from the type step.
func ClassificationOf(a Answers) domain.Classification {
	return domain.Classify(a.String(StepType, FieldAquariumType))
}

// SetupRegistry returns the aquarium setup flow. Chemistry-specific steps
// appear only for the classifications they concern.
func SetupRegistry() *Registry {
	return setupRegistry
}

var setupRegistry = MustRegistry(
	Step{
		Key:   StepType,
		Title: "Aquarium type",
		Rules: map[string]any{FieldAquariumType: "required,min=2,max=64"},
	},
	Step{
		Key:       StepSize,
		Title:     "Name and volume",
		DependsOn: []string{StepType},
		Rules: map[string]any{
			FieldName:          "required,min=1,max=80",
			FieldVolumeGallons: "required,gt=0,lte=10000",
		},
		Numeric: []string{FieldVolumeGallons},
	},
	Step{
		Key:        StepSalinity,
		Title:      "Target salinity",
		DependsOn:  []string{StepType},
		Applicable: func(a Answers) bool { return ClassificationOf(a).Saltwater() },
		Rules:      map[string]any{FieldSalinity: "required,gte=1.020,lte=1.030"},
		Numeric:    []string{FieldSalinity},
	},
	Step{
		Key:       StepCO2,
		Title:     "CO2 injection",
		DependsOn: []string{StepType},
		Applicable: func(a Answers) bool {
			c := ClassificationOf(a)
			return c.Planted && !c.Saltwater()
		},
		Rules: map[string]any{FieldCO2Method: "required,oneof=none liquid pressurized diy"},
	},
	Step{
		Key:        StepCoral,
		Title:      "Coral focus",
		DependsOn:  []string{StepType},
		Applicable: func(a Answers) bool { return ClassificationOf(a).Reef },
		Rules:      map[string]any{FieldCoralFocus: "required,oneof=soft lps sps mixed"},
	},
	Step{
		Key:       StepEquipment,
		Title:     "Equipment",
		DependsOn: []string{StepSize},
		Rules: map[string]any{
			FieldFilter: "required,min=2",
			FieldLight:  "omitempty,min=2",
		},
		Validate: func(a Answers, fields map[string]any) error {
			c := ClassificationOf(a)
			if !c.Coldwater && a.String(StepEquipment, FieldHeater) == "" {
				return FieldError(FieldHeater, "a heater is required for a "+c.String()+" tank")
			}
			if c.Reef && a.String(StepEquipment, FieldSkimmer) == "" {
				return FieldError(FieldSkimmer, "a protein skimmer is required for a reef tank")
			}
			return nil
		},
	},
	Step{
		Key:       StepCycling,
		Title:     "Cycling",
		DependsOn: []string{StepSize},
		Rules:     map[string]any{FieldCyclingMethod: "required,oneof=fishless fish_in seeded established"},
	},
	Step{
		Key:       StepLivestock,
		Title:     "Livestock plan",
		DependsOn: []string{StepCycling, StepSalinity, StepCO2, StepCoral},
		Rules:     map[string]any{FieldLivestockNotes: "omitempty,max=500"},
	},
)
