package health

import (
	"strings"
	"testing"
	"time"

	"tankcore/pkg/domain"
	"tankcore/pkg/ranges"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func waterTest(at time.Time, values map[string]float64) domain.WaterTest {
	out := domain.WaterTest{RecordedAt: at, Values: make(map[string]*float64, len(values))}
	for k, v := range values {
		out.Values[k] = ptr(v)
	}
	return out
}

func healthyFreshwater() map[string]float64 {
	return map[string]float64{
		domain.ParamTemperature: 77,
		domain.ParamPH:          7.0,
		domain.ParamAmmonia:     0,
		domain.ParamNitrite:     0,
		domain.ParamNitrate:     10,
	}
}

func find(findings []Finding, code, subject string) (Finding, bool) {
	for _, f := range findings {
		if f.Code == code && (subject == "" || f.Subject == subject) {
			return f, true
		}
	}
	return Finding{}, false
}

func TestHealthyFreshwaterWithoutMaintenance(t *testing.T) {
	score := Evaluate(Input{
		Classification: domain.Classify("freshwater"),
		Readings:       []domain.WaterTest{waterTest(now, healthyFreshwater())},
		Now:            now,
	})
	params := score.ByCategory(CategoryParameters)
	if len(params) != 5 {
		t.Fatalf("expected 5 parameter findings, got %d", len(params))
	}
	for _, f := range params {
		if f.Severity != SeverityOK {
			t.Fatalf("expected %s to be ok, got %+v", f.Subject, f)
		}
	}
	if score.Count(SeverityCritical) != 0 {
		t.Fatalf("expected no critical findings, got %+v", score.Findings)
	}
	maint := score.ByCategory(CategoryMaintenance)
	if len(maint) != 1 || maint[0].Code != CodeNoHistory || maint[0].Severity != SeverityWarning {
		t.Fatalf("expected single no-history warning, got %+v", maint)
	}
	if score.Count(SeverityWarning) != 1 {
		t.Fatalf("expected the maintenance warning to be the only one, got %+v", score.Findings)
	}
	if score.Overall >= 100 || score.Overall != 100-DefaultPolicy().NoHistoryPenalty {
		t.Fatalf("unexpected overall %d", score.Overall)
	}
}

func TestMixedCaseReadingKeysMatchRanges(t *testing.T) {
	score := Evaluate(Input{
		Classification: domain.Classify("freshwater"),
		Readings: []domain.WaterTest{waterTest(now, map[string]float64{
			"ammonia": 0, "nitrite": 0, "nitrate": 10, "pH": 7.0, "temperature": 75,
		})},
		Now: now,
	})
	if _, ok := find(score.Findings, CodeNoRecentData, ""); ok {
		t.Fatalf("pH reading must satisfy the ph range, got %+v", score.ByCategory(CategoryParameters))
	}
	if score.Count(SeverityWarning) != 1 || score.Count(SeverityCritical) != 0 {
		t.Fatalf("expected only the no-history warning, got %+v", score.Findings)
	}
	if want := 100 - DefaultPolicy().NoHistoryPenalty; score.Overall != want {
		t.Fatalf("overall = %d, want %d", score.Overall, want)
	}
}

func TestAmmoniaSpikeIsCritical(t *testing.T) {
	score := Evaluate(Input{
		Classification: domain.Classify("freshwater"),
		Readings:       []domain.WaterTest{waterTest(now, map[string]float64{domain.ParamAmmonia: 0.5})},
	})
	f, ok := find(score.Findings, CodeOutOfRange, domain.ParamAmmonia)
	if !ok || f.Severity != SeverityCritical {
		t.Fatalf("expected critical ammonia finding, got %+v", score.Findings)
	}
	if !strings.Contains(f.Message, "0.5 ppm") || !strings.Contains(f.Message, "must be 0") {
		t.Fatalf("unexpected message %q", f.Message)
	}
	for _, p := range []string{domain.ParamTemperature, domain.ParamPH, domain.ParamNitrite, domain.ParamNitrate} {
		if _, ok := find(score.Findings, CodeNoRecentData, p); !ok {
			t.Fatalf("expected no-data warning for %s", p)
		}
	}
	if score.Overall > 80 {
		t.Fatalf("expected overall <= 80, got %d", score.Overall)
	}
	if score.Worst() != SeverityCritical {
		t.Fatalf("expected worst severity critical")
	}
}

func TestAbsoluteZeroParametersAreAlwaysCritical(t *testing.T) {
	score := Evaluate(Input{
		Classification: domain.DefaultClassification,
		Readings:       []domain.WaterTest{waterTest(now, map[string]float64{domain.ParamAmmonia: 0.25, domain.ParamNitrite: 0.01})},
	})
	for _, p := range []string{domain.ParamAmmonia, domain.ParamNitrite} {
		f, ok := find(score.Findings, CodeOutOfRange, p)
		if !ok || f.Severity != SeverityCritical {
			t.Fatalf("%s: expected critical, got %+v", p, f)
		}
	}
}

func TestToleranceSeparatesWarningFromCritical(t *testing.T) {
	// Freshwater pH band 6.5–7.5 with 25% tolerance allows 0.25 of drift.
	cases := []struct {
		ph   float64
		want Severity
	}{
		{7.5, SeverityOK},
		{7.7, SeverityWarning},
		{7.75, SeverityWarning},
		{8.0, SeverityCritical},
		{6.0, SeverityCritical},
	}
	for _, tc := range cases {
		score := Evaluate(Input{
			Classification: domain.DefaultClassification,
			Readings:       []domain.WaterTest{waterTest(now, map[string]float64{domain.ParamPH: tc.ph})},
		})
		var got Finding
		for _, f := range score.ByCategory(CategoryParameters) {
			if f.Subject == domain.ParamPH {
				got = f
			}
		}
		if got.Severity != tc.want {
			t.Fatalf("pH %v: expected %s, got %+v", tc.ph, tc.want, got)
		}
	}
}

func TestOneSidedToleranceUsesBound(t *testing.T) {
	// Freshwater nitrate max 40 tolerates 10 ppm of overshoot.
	score := Evaluate(Input{
		Classification: domain.DefaultClassification,
		Readings:       []domain.WaterTest{waterTest(now, map[string]float64{domain.ParamNitrate: 45})},
	})
	if f, _ := find(score.Findings, CodeOutOfRange, domain.ParamNitrate); f.Severity != SeverityWarning {
		t.Fatalf("expected warning at 45 ppm, got %+v", f)
	}
	score = Evaluate(Input{
		Classification: domain.DefaultClassification,
		Readings:       []domain.WaterTest{waterTest(now, map[string]float64{domain.ParamNitrate: 60})},
	})
	if f, _ := find(score.Findings, CodeOutOfRange, domain.ParamNitrate); f.Severity != SeverityCritical {
		t.Fatalf("expected critical at 60 ppm, got %+v", f)
	}
}

func TestLatestReadingWinsPerParameter(t *testing.T) {
	older := waterTest(now.Add(-48*time.Hour), map[string]float64{domain.ParamPH: 9, domain.ParamNitrate: 10})
	newer := waterTest(now, map[string]float64{domain.ParamPH: 7})
	newer.Values[domain.ParamNitrate] = nil
	score := Evaluate(Input{
		Classification: domain.DefaultClassification,
		Readings:       []domain.WaterTest{newer, older},
		Now:            now,
	})
	if f, ok := find(score.Findings, CodeInRange, domain.ParamPH); !ok {
		t.Fatalf("expected newest pH to be used, got %+v", f)
	}
	if _, ok := find(score.Findings, CodeInRange, domain.ParamNitrate); !ok {
		t.Fatalf("a null in the newer reading must fall back to the older value")
	}
}

func TestStaleAndMalformedReadingsIgnored(t *testing.T) {
	stale := waterTest(now.Add(-90*24*time.Hour), healthyFreshwater())
	undated := waterTest(time.Time{}, healthyFreshwater())
	score := Evaluate(Input{
		Classification: domain.DefaultClassification,
		Readings:       []domain.WaterTest{stale, undated},
		Now:            now,
	})
	for _, f := range score.ByCategory(CategoryParameters) {
		if f.Code != CodeNoRecentData {
			t.Fatalf("expected no recent data for %s, got %+v", f.Subject, f)
		}
	}
}

func TestChemistrySpecificParametersScored(t *testing.T) {
	score := Evaluate(Input{
		Classification: domain.Classify("reef"),
		Readings: []domain.WaterTest{waterTest(now, map[string]float64{
			domain.ParamCalcium:   420,
			domain.ParamPhosphate: 0.5,
		})},
	})
	if _, ok := find(score.Findings, CodeInRange, domain.ParamCalcium); !ok {
		t.Fatalf("expected calcium finding")
	}
	if f, _ := find(score.Findings, CodeOutOfRange, domain.ParamPhosphate); f.Severity != SeverityCritical {
		t.Fatalf("expected phosphate far above 0.1 to be critical, got %+v", f)
	}
	if _, ok := find(score.Findings, CodeNoRecentData, domain.ParamSalinity); !ok {
		t.Fatalf("expected salinity to be reported missing")
	}
}

func TestMetricMessages(t *testing.T) {
	score := Evaluate(Input{
		Classification: domain.DefaultClassification,
		Readings:       []domain.WaterTest{waterTest(now, map[string]float64{domain.ParamTemperature: 77})},
		Units:          ranges.Metric,
	})
	f, _ := find(score.Findings, CodeInRange, domain.ParamTemperature)
	if !strings.Contains(f.Message, "25.0 °C") {
		t.Fatalf("expected metric reading in %q", f.Message)
	}
}

func TestMaintenanceRecency(t *testing.T) {
	events := []domain.MaintenanceEvent{
		{Type: domain.MaintenanceWaterChange, PerformedAt: now.Add(-3 * day)},
		{Type: domain.MaintenanceFilter, PerformedAt: now.Add(-45 * day)},
		{Type: domain.MaintenanceGlass},
	}
	score := Evaluate(Input{Classification: domain.DefaultClassification, Maintenance: events, Now: now})
	if f, ok := find(score.Findings, CodeMaintenanceCurrent, string(domain.MaintenanceWaterChange)); !ok || f.Severity != SeverityOK {
		t.Fatalf("expected water change to be current, got %+v", score.ByCategory(CategoryMaintenance))
	}
	f, ok := find(score.Findings, CodeMaintenanceOverdue, string(domain.MaintenanceFilter))
	if !ok || !strings.Contains(f.Message, "45 days") {
		t.Fatalf("expected overdue filter maintenance, got %+v", f)
	}
	if _, ok := find(score.Findings, CodeMaintenanceMissing, string(domain.MaintenanceDosing)); ok {
		t.Fatalf("dosing is only expected for reef tanks")
	}

	reef := Evaluate(Input{Classification: domain.Classify("reef"), Maintenance: events, Now: now})
	if _, ok := find(reef.Findings, CodeMaintenanceMissing, string(domain.MaintenanceDosing)); !ok {
		t.Fatalf("expected missing dosing on reef tank")
	}
}

func TestMaintenanceLabelsAreNormalised(t *testing.T) {
	events := []domain.MaintenanceEvent{
		{Type: "Water Change", PerformedAt: now.Add(-day)},
		{Type: "water-change", PerformedAt: now.Add(-2 * day)},
		{Type: "Filter Maintenance", PerformedAt: now.Add(-day)},
	}
	score := Evaluate(Input{Classification: domain.DefaultClassification, Maintenance: events, Now: now})
	if _, ok := find(score.Findings, CodeMaintenanceMissing, string(domain.MaintenanceWaterChange)); ok {
		t.Fatalf("labelled water changes must count, got %+v", score.ByCategory(CategoryMaintenance))
	}
	f, ok := find(score.Findings, CodeMaintenanceCurrent, string(domain.MaintenanceWaterChange))
	if !ok || !strings.Contains(f.Message, "1 day") {
		t.Fatalf("expected newest water change to be current, got %+v", f)
	}
	if _, ok := find(score.Findings, CodeMaintenanceCurrent, string(domain.MaintenanceFilter)); !ok {
		t.Fatalf("expected filter maintenance to be current")
	}
}

func TestMalformedMaintenanceCountsAsNoHistory(t *testing.T) {
	score := Evaluate(Input{
		Classification: domain.DefaultClassification,
		Maintenance:    []domain.MaintenanceEvent{{Type: domain.MaintenanceWaterChange}},
		Now:            now,
	})
	if _, ok := find(score.Findings, CodeNoHistory, ""); !ok {
		t.Fatalf("undated events must not count as history")
	}
}

func TestLivestockFindings(t *testing.T) {
	fresh := domain.Classify("freshwater")
	score := Evaluate(Input{
		Classification: fresh,
		VolumeGallons:  10,
		Livestock: []domain.LivestockEntry{
			{Base: domain.Base{ID: "b"}, Category: "coral", Species: "Hammer Coral", Quantity: 1, AddedAt: now},
			{Base: domain.Base{ID: "a"}, Category: "Fish", Species: "Angelfish", Quantity: 3, AdultSizeInches: ptr(6.0), AddedAt: now},
		},
		Now: now,
	})
	f, ok := find(score.Findings, CodeHabitatMismatch, "Hammer Coral")
	if !ok || f.Severity != SeverityWarning {
		t.Fatalf("expected habitat warning, got %+v", score.ByCategory(CategoryLivestock))
	}
	if _, ok := find(score.Findings, CodeOverstocked, domain.LivestockFish); !ok {
		t.Fatalf("18 in of fish in 10 gal should be overstocked")
	}

	ok2 := Evaluate(Input{
		Classification: fresh,
		VolumeGallons:  40,
		Livestock:      []domain.LivestockEntry{{Category: "fish", Species: "Neon Tetra", Quantity: 10, AdultSizeInches: ptr(1.5)}},
		Now:            now,
	})
	if _, ok := find(ok2.Findings, CodeStockingOK, ""); !ok {
		t.Fatalf("expected stocking within guideline, got %+v", ok2.ByCategory(CategoryLivestock))
	}

	empty := Evaluate(Input{Classification: fresh, Now: now})
	lf := empty.ByCategory(CategoryLivestock)
	if len(lf) != 1 || lf[0].Code != CodeNoLivestock || lf[0].Severity != SeverityOK {
		t.Fatalf("expected informational no-livestock finding, got %+v", lf)
	}
}

func TestEquipmentFindings(t *testing.T) {
	planted := domain.Classify("planted")
	score := Evaluate(Input{
		Classification: planted,
		Equipment: []domain.EquipmentEntry{
			{Type: "Canister", Name: "Fluval 307", InstalledAt: now.Add(-10 * day)},
			{Type: "filter media", Name: "Purigen", InstalledAt: now.Add(-100 * day)},
		},
		Now: now,
	})
	if _, ok := find(score.Findings, CodeMissingEssential, domain.EquipmentHeater); !ok {
		t.Fatalf("expected missing heater, got %+v", score.ByCategory(CategoryEquipment))
	}
	if _, ok := find(score.Findings, CodeMissingEssential, domain.EquipmentCO2); !ok {
		t.Fatalf("planted tanks expect CO2")
	}
	if _, ok := find(score.Findings, CodeMissingEssential, domain.EquipmentFilter); ok {
		t.Fatalf("canister should satisfy the filter requirement")
	}
	if _, ok := find(score.Findings, CodeConsumableOverdue, "Purigen"); !ok {
		t.Fatalf("expected overdue filter media")
	}

	cold := Evaluate(Input{
		Classification: domain.Classify("goldfish"),
		Equipment:      []domain.EquipmentEntry{{Type: "filter", InstalledAt: now}},
		Now:            now,
	})
	if f, ok := find(cold.Findings, CodeEquipmentRecorded, ""); !ok || f.Severity != SeverityOK {
		t.Fatalf("coldwater tank with a filter needs nothing else, got %+v", cold.ByCategory(CategoryEquipment))
	}
}

func TestFindingOrder(t *testing.T) {
	score := Evaluate(Input{Classification: domain.DefaultClassification, Now: now})
	last := -1
	for _, f := range score.Findings {
		idx := -1
		for i, c := range Categories {
			if c == f.Category {
				idx = i
			}
		}
		if idx < last {
			t.Fatalf("findings out of category order: %+v", score.Findings)
		}
		last = idx
	}
}

func TestEmptyInputsDegradeGracefully(t *testing.T) {
	score := Evaluate(Input{})
	if score.Overall < 0 || score.Overall > 100 {
		t.Fatalf("overall out of bounds: %d", score.Overall)
	}
	if score.Count(SeverityCritical) != 0 {
		t.Fatalf("missing data must never be critical")
	}
	if !score.ReferenceTime.IsZero() {
		t.Fatalf("expected zero reference time")
	}
}

func TestOverallClampedAtZero(t *testing.T) {
	p := DefaultPolicy()
	p.WarningPenalty = 40
	p.CriticalPenalty = 60
	agg, err := New(p)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	score := agg.Score(Input{Classification: domain.Classify("reef"), Now: now})
	if score.Overall != 0 {
		t.Fatalf("expected clamp at 0, got %d", score.Overall)
	}
}

func TestAddingCriticalFindingNeverRaisesScore(t *testing.T) {
	agg, _ := New(DefaultPolicy())
	base := []Finding{
		{Severity: SeverityOK},
		{Severity: SeverityWarning, Code: CodeNoHistory},
		{Severity: SeverityWarning},
	}
	before := agg.overall(base)
	after := agg.overall(append(base, Finding{Severity: SeverityCritical}))
	if after > before {
		t.Fatalf("critical finding raised score from %d to %d", before, after)
	}
	// Replacing any finding with a critical one must not help either.
	for i := range base {
		mod := append([]Finding(nil), base...)
		mod[i] = Finding{Severity: SeverityCritical}
		if agg.overall(mod) > before {
			t.Fatalf("upgrading finding %d to critical raised the score", i)
		}
	}
	if agg.Penalty(Finding{Severity: SeverityWarning, Code: CodeNoHistory}) >= agg.Penalty(Finding{Severity: SeverityCritical}) {
		t.Fatalf("no-history penalty must stay below critical")
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	mutations := map[string]func(*Policy){
		"negative":        func(p *Policy) { p.WarningPenalty = -1 },
		"critical<=warn":  func(p *Policy) { p.CriticalPenalty = p.WarningPenalty },
		"nohistory>=crit": func(p *Policy) { p.NoHistoryPenalty = p.CriticalPenalty },
		"nohistory<=warn": func(p *Policy) { p.NoHistoryPenalty = p.WarningPenalty },
		"nohistory zero":  func(p *Policy) { p.NoHistoryPenalty = 0 },
		"tolerance":       func(p *Policy) { p.ToleranceFraction = -0.1 },
		"stocking":        func(p *Policy) { p.SaltwaterGallonsPerInch = 0 },
		"interval":        func(p *Policy) { p.Maintenance[0].Interval = 0 },
	}
	for name, mutate := range mutations {
		p := DefaultPolicy()
		mutate(&p)
		if _, err := New(p); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestAggregatorPolicyIsCopied(t *testing.T) {
	p := DefaultPolicy()
	agg, _ := New(p)
	p.Maintenance[0].Interval = time.Nanosecond
	if agg.Policy().Maintenance[0].Interval == time.Nanosecond {
		t.Fatalf("aggregator must not alias caller policy")
	}
}

func TestForTank(t *testing.T) {
	tank := domain.Tank{AquariumType: "Mixed Reef", VolumeGallons: 75}
	in := ForTank(tank, nil, nil, nil, nil)
	if !in.Classification.Reef || in.VolumeGallons != 75 {
		t.Fatalf("unexpected input %+v", in)
	}
}
