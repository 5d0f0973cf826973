package health

import (
	"fmt"
	"sort"
	"strings"

	"tankcore/pkg/compat"
	"tankcore/pkg/domain"
)

type livestockCheck struct{}

func (livestockCheck) evaluate(ctx *evalContext) []Finding {
	entries := make([]domain.LivestockEntry, 0, len(ctx.in.Livestock))
	for _, l := range ctx.in.Livestock {
		if strings.TrimSpace(l.Category) == "" || l.Quantity < 0 {
			continue
		}
		entries = append(entries, l)
	}
	if len(entries) == 0 {
		return []Finding{{
			Category: CategoryLivestock,
			Severity: SeverityOK,
			Code:     CodeNoLivestock,
			Message:  "no livestock recorded",
		}}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].AddedAt.Before(entries[j].AddedAt)
		}
		return entries[i].ID < entries[j].ID
	})

	catalog := compat.Default()
	cls := ctx.in.Classification
	var findings []Finding
	var inches float64
	sized := false
	for _, l := range entries {
		if ok, why := catalog.Advisory(l.Category, cls); !ok {
			findings = append(findings, Finding{
				Category: CategoryLivestock,
				Severity: SeverityWarning,
				Code:     CodeHabitatMismatch,
				Subject:  subject(l.Species, l.Category),
				Message:  why,
			})
		}
		if key, _ := catalog.Canonical(l.Category); key == domain.LivestockFish && l.AdultSizeInches != nil && *l.AdultSizeInches > 0 {
			qty := l.Quantity
			if qty == 0 {
				qty = 1
			}
			inches += float64(qty) * *l.AdultSizeInches
			sized = true
		}
	}

	if sized && ctx.in.VolumeGallons > 0 {
		capacity := ctx.in.VolumeGallons / ctx.policy.gallonsPerInch(cls)
		f := Finding{Category: CategoryLivestock, Subject: domain.LivestockFish}
		if inches > capacity {
			f.Severity = SeverityWarning
			f.Code = CodeOverstocked
			f.Message = fmt.Sprintf("%.1f in of fish exceeds the %.1f in guideline for %g gal", inches, capacity, ctx.in.VolumeGallons)
		} else {
			f.Severity = SeverityOK
			f.Code = CodeStockingOK
			f.Message = fmt.Sprintf("%.1f in of fish within the %.1f in guideline", inches, capacity)
		}
		findings = append(findings, f)
	}
	if len(findings) == 0 {
		findings = append(findings, Finding{
			Category: CategoryLivestock,
			Severity: SeverityOK,
			Code:     CodeLivestockRecorded,
			Message:  fmt.Sprintf("%d livestock entries recorded", len(entries)),
		})
	}
	return findings
}

func subject(primary, fallback string) string {
	if s := strings.TrimSpace(primary); s != "" {
		return s
	}
	return fallback
}

var equipmentAliases = map[string]string{
	"skimmer":     domain.EquipmentSkimmer,
	"co2":         domain.EquipmentCO2,
	"uv":          domain.EquipmentUV,
	"rodi":        domain.EquipmentRODI,
	"ro_di":       domain.EquipmentRODI,
	"media":       domain.EquipmentFilterMedia,
	"lighting":    domain.EquipmentLight,
	"powerhead":   domain.EquipmentPump,
	"return":      domain.EquipmentPump,
	"canister":    domain.EquipmentFilter,
	"sponge":      domain.EquipmentFilter,
	"dosing":      domain.EquipmentDoser,
	"dosing_pump": domain.EquipmentDoser,
}

// EquipmentType normalises a free-form equipment type label.
func EquipmentType(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(s)
	if alias, ok := equipmentAliases[s]; ok {
		return alias
	}
	return s
}

// essentials lists the equipment a tank of this classification should have.
func essentials(c domain.Classification) []string {
	out := []string{domain.EquipmentFilter}
	if !c.Coldwater {
		out = append(out, domain.EquipmentHeater)
	}
	if c.Reef {
		out = append(out, domain.EquipmentSkimmer)
	}
	if c.Planted && !c.Saltwater() {
		out = append(out, domain.EquipmentCO2)
	}
	return out
}

type equipmentCheck struct{}

func (equipmentCheck) evaluate(ctx *evalContext) []Finding {
	entries := make([]domain.EquipmentEntry, 0, len(ctx.in.Equipment))
	for _, e := range ctx.in.Equipment {
		if strings.TrimSpace(e.Type) == "" {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return []Finding{{
			Category: CategoryEquipment,
			Severity: SeverityOK,
			Code:     CodeNoEquipment,
			Message:  "no equipment recorded",
		}}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].InstalledAt.Equal(entries[j].InstalledAt) {
			return entries[i].InstalledAt.Before(entries[j].InstalledAt)
		}
		return entries[i].ID < entries[j].ID
	})

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[EquipmentType(e.Type)] = true
	}
	var findings []Finding
	for _, need := range essentials(ctx.in.Classification) {
		if present[need] {
			continue
		}
		findings = append(findings, Finding{
			Category: CategoryEquipment,
			Severity: SeverityWarning,
			Code:     CodeMissingEssential,
			Subject:  need,
			Message:  fmt.Sprintf("no %s recorded for a %s tank", strings.ReplaceAll(need, "_", " "), ctx.in.Classification),
		})
	}

	lifespans := make(map[string]ConsumableLifespan, len(ctx.policy.Consumables))
	for _, c := range ctx.policy.Consumables {
		lifespans[EquipmentType(c.Type)] = c
	}
	for _, e := range entries {
		c, ok := lifespans[EquipmentType(e.Type)]
		if !ok {
			continue
		}
		at := e.ServicedAt()
		if at.IsZero() || ctx.age(at) <= c.Lifespan {
			continue
		}
		findings = append(findings, Finding{
			Category: CategoryEquipment,
			Severity: SeverityWarning,
			Code:     CodeConsumableOverdue,
			Subject:  subject(e.Name, e.Type),
			Message:  fmt.Sprintf("%s last serviced %s ago, replace every %s", subject(e.Name, e.Type), days(ctx.age(at)), days(c.Lifespan)),
		})
	}
	if len(findings) == 0 {
		findings = append(findings, Finding{
			Category: CategoryEquipment,
			Severity: SeverityOK,
			Code:     CodeEquipmentRecorded,
			Message:  fmt.Sprintf("%d pieces of equipment recorded", len(entries)),
		})
	}
	return findings
}
