package core

import (
	"context"
	"errors"
	"math"
	"testing"

	"tankcore/pkg/domain"
	"tankcore/pkg/health"
)

func TestNewServiceRequiresStore(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestNewServiceRejectsInvalidPolicy(t *testing.T) {
	policy := health.DefaultPolicy()
	policy.CriticalPenalty = 1
	policy.WarningPenalty = 10
	if _, err := NewInMemoryService(nil, WithHealthPolicy(policy)); err == nil {
		t.Fatalf("expected policy validation error")
	}
}

func TestTankLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	tank := mustTank(t, svc, "Community", "freshwater", 29)
	if tank.ID == "" {
		t.Fatalf("expected generated ID")
	}
	got, err := svc.GetTank(tank.ID)
	if err != nil || got.Name != "Community" {
		t.Fatalf("get tank: %+v %v", got, err)
	}
	updated, _, err := svc.UpdateTank(ctx, tank.ID, func(t *Tank) error {
		t.VolumeGallons = 40
		return nil
	})
	if err != nil || updated.VolumeGallons != 40 {
		t.Fatalf("update tank: %+v %v", updated, err)
	}
	if len(svc.ListTanks()) != 1 {
		t.Fatalf("expected one tank")
	}
	if _, err := svc.DeleteTank(ctx, tank.ID); err != nil {
		t.Fatalf("delete tank: %v", err)
	}
	var nf ErrNotFound
	if _, err := svc.GetTank(tank.ID); !errors.As(err, &nf) || nf.Entity != EntityTank {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.DeleteTank(ctx, tank.ID); !errors.As(err, &nf) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTankValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	cases := map[string]Tank{
		"blank name":   {Name: "  ", VolumeGallons: 10},
		"negative":     {Name: "x", VolumeGallons: -1},
		"not a number": {Name: "x", VolumeGallons: math.NaN()},
	}
	for name, tank := range cases {
		if _, _, err := svc.CreateTank(ctx, tank); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", name, err)
		}
	}
	tank := mustTank(t, svc, "Nano", "reef", 10)
	if _, _, err := svc.UpdateTank(ctx, tank.ID, func(t *Tank) error {
		t.Name = ""
		return nil
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected update validation error, got %v", err)
	}
	if _, _, err := svc.UpdateTank(ctx, "missing", func(*Tank) error { return nil }); err == nil {
		t.Fatalf("expected not found for missing tank")
	}
}

func TestRecordsRequireExistingTank(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	var nf ErrNotFound
	if _, _, err := svc.RecordWaterTest(ctx, WaterTest{TankID: "ghost"}); !errors.As(err, &nf) {
		t.Fatalf("water test: expected not found, got %v", err)
	}
	if _, _, err := svc.RecordMaintenance(ctx, MaintenanceEvent{TankID: "ghost", Type: domain.MaintenanceWaterChange}); !errors.As(err, &nf) {
		t.Fatalf("maintenance: expected not found, got %v", err)
	}
	if _, _, err := svc.AddLivestock(ctx, LivestockEntry{TankID: "ghost", Category: "fish", Species: "Guppy"}); !errors.As(err, &nf) {
		t.Fatalf("livestock: expected not found, got %v", err)
	}
	if _, _, err := svc.AddEquipment(ctx, EquipmentEntry{TankID: "ghost", Type: "filter"}); !errors.As(err, &nf) {
		t.Fatalf("equipment: expected not found, got %v", err)
	}
}

func TestWaterTestsAndMaintenance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	tank := mustTank(t, svc, "Community", "freshwater", 29)

	wt, _, err := svc.RecordWaterTest(ctx, WaterTest{TankID: tank.ID, Values: map[string]*float64{
		domain.ParamPH:      ptr(7.0),
		domain.ParamAmmonia: nil,
	}})
	if err != nil {
		t.Fatalf("record water test: %v", err)
	}
	if got := svc.ListWaterTests(tank.ID); len(got) != 1 || got[0].ID != wt.ID {
		t.Fatalf("unexpected water tests %+v", got)
	}
	if _, err := svc.DeleteWaterTest(ctx, wt.ID); err != nil {
		t.Fatalf("delete water test: %v", err)
	}
	if len(svc.ListWaterTests(tank.ID)) != 0 {
		t.Fatalf("expected no water tests")
	}

	if _, _, err := svc.RecordMaintenance(ctx, MaintenanceEvent{TankID: tank.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing type error, got %v", err)
	}
	ev, _, err := svc.RecordMaintenance(ctx, MaintenanceEvent{TankID: tank.ID, Type: domain.MaintenanceWaterChange, VolumePercent: ptr(25.0)})
	if err != nil {
		t.Fatalf("record maintenance: %v", err)
	}
	if got := svc.ListMaintenance(tank.ID); len(got) != 1 {
		t.Fatalf("unexpected maintenance %+v", got)
	}
	if _, err := svc.DeleteMaintenance(ctx, ev.ID); err != nil {
		t.Fatalf("delete maintenance: %v", err)
	}
}

func TestRecordsStoreCanonicalNames(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	tank := mustTank(t, svc, "Community", "freshwater", 29)

	wt, res, err := svc.RecordWaterTest(ctx, WaterTest{TankID: tank.ID, Values: map[string]*float64{
		"pH":      ptr(7.0),
		" Nitrate": ptr(10.0),
	}})
	if err != nil {
		t.Fatalf("record water test: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("mixed-case known parameters must not warn, got %+v", res.Violations)
	}
	if v, ok := wt.Value(domain.ParamPH); !ok || v != 7.0 {
		t.Fatalf("expected ph stored under canonical key, got %+v", wt.Values)
	}
	if _, ok := wt.Values["pH"]; ok {
		t.Fatalf("raw label must not be stored, got %+v", wt.Values)
	}

	ev, _, err := svc.RecordMaintenance(ctx, MaintenanceEvent{TankID: tank.ID, Type: "Water-Change"})
	if err != nil {
		t.Fatalf("record maintenance: %v", err)
	}
	if ev.Type != domain.MaintenanceWaterChange {
		t.Fatalf("expected water_change, got %q", ev.Type)
	}
}

func TestWaterTestValuesRuleBlocksImpossibleReadings(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	tank := mustTank(t, svc, "Community", "freshwater", 29)

	_, _, err := svc.RecordWaterTest(ctx, WaterTest{TankID: tank.ID, Values: map[string]*float64{domain.ParamNitrate: ptr(-3.0)}})
	var rv RuleViolationError
	if !errors.As(err, &rv) || !rv.Result.HasBlocking() {
		t.Fatalf("expected blocking violation, got %v", err)
	}
	if len(svc.ListWaterTests(tank.ID)) != 0 {
		t.Fatalf("blocked water test must not be stored")
	}

	_, res, err := svc.RecordWaterTest(ctx, WaterTest{TankID: tank.ID, Values: map[string]*float64{
		domain.ParamTemperature: ptr(-1.0),
		"copper":                ptr(0.1),
	}})
	if err != nil {
		t.Fatalf("expected warnings only, got %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Severity != SeverityWarn || res.Violations[0].Rule != "water_test_values" {
		t.Fatalf("expected unknown parameter warning, got %+v", res.Violations)
	}
}

func TestLivestockRosterAndStockingWarning(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	tank := mustTank(t, svc, "Nano", "freshwater", 10)

	if _, _, err := svc.AddLivestock(ctx, LivestockEntry{TankID: tank.ID, Category: "fish"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing species error, got %v", err)
	}
	if _, _, err := svc.AddLivestock(ctx, LivestockEntry{TankID: tank.ID, Category: "fish", Species: "Guppy", Quantity: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected quantity error, got %v", err)
	}

	entry, res, err := svc.AddLivestock(ctx, LivestockEntry{TankID: tank.ID, Category: "fish", Species: "Neon Tetra", Quantity: 6, AdultSizeInches: ptr(1.5)})
	if err != nil {
		t.Fatalf("add livestock: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("9 inches in 10 gallons should not warn, got %+v", res.Violations)
	}
	_, res, err = svc.UpdateLivestock(ctx, entry.ID, func(l *LivestockEntry) error {
		l.Quantity = 12
		return nil
	})
	if err != nil {
		t.Fatalf("update livestock: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Rule != "stocking_capacity" || res.Violations[0].EntityID != tank.ID {
		t.Fatalf("expected stocking warning, got %+v", res.Violations)
	}
	if got := svc.ListLivestock(tank.ID); len(got) != 1 || got[0].Quantity != 12 {
		t.Fatalf("warning must not block the write, got %+v", got)
	}
	if _, err := svc.RemoveLivestock(ctx, entry.ID); err != nil {
		t.Fatalf("remove livestock: %v", err)
	}
	if _, err := svc.RemoveLivestock(ctx, entry.ID); err == nil {
		t.Fatalf("expected error removing twice")
	}
}

func TestEquipmentTypesAreNormalised(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	tank := mustTank(t, svc, "Community", "freshwater", 29)

	if _, _, err := svc.AddEquipment(ctx, EquipmentEntry{TankID: tank.ID, Type: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing type error, got %v", err)
	}
	eq, _, err := svc.AddEquipment(ctx, EquipmentEntry{TankID: tank.ID, Type: "Canister", Name: "Fluval 307"})
	if err != nil {
		t.Fatalf("add equipment: %v", err)
	}
	if eq.Type != domain.EquipmentFilter {
		t.Fatalf("expected canister to normalise to filter, got %q", eq.Type)
	}
	serviced := testNow
	eq, _, err = svc.UpdateEquipment(ctx, eq.ID, func(e *EquipmentEntry) error {
		e.LastServicedAt = &serviced
		return nil
	})
	if err != nil || eq.LastServicedAt == nil {
		t.Fatalf("update equipment: %+v %v", eq, err)
	}
	if got := svc.ListEquipment(tank.ID); len(got) != 1 {
		t.Fatalf("unexpected equipment %+v", got)
	}
	if _, err := svc.RemoveEquipment(ctx, eq.ID); err != nil {
		t.Fatalf("remove equipment: %v", err)
	}
}

func TestDeleteTankCascades(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	tank := mustTank(t, svc, "Reef", "reef", 40)
	if _, _, err := svc.AddLivestock(ctx, LivestockEntry{TankID: tank.ID, Category: "coral", Species: "Zoanthids"}); err != nil {
		t.Fatalf("add livestock: %v", err)
	}
	if _, _, err := svc.AddEquipment(ctx, EquipmentEntry{TankID: tank.ID, Type: "heater"}); err != nil {
		t.Fatalf("add equipment: %v", err)
	}
	if _, err := svc.DeleteTank(ctx, tank.ID); err != nil {
		t.Fatalf("delete tank: %v", err)
	}
	if len(svc.ListLivestock(tank.ID)) != 0 || len(svc.ListEquipment(tank.ID)) != 0 {
		t.Fatalf("expected child records removed with the tank")
	}
}
