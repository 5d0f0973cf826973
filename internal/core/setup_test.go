package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tankcore/pkg/domain"
	"tankcore/pkg/wizard"
)

func answer(t *testing.T, svc *Service, id, step string, payload map[string]any) SetupStatus {
	t.Helper()
	status, state, err := svc.AnswerSetupStep(context.Background(), id, step, payload)
	if err != nil {
		t.Fatalf("answer %s: %v", step, err)
	}
	if state != wizard.StateCompleted {
		t.Fatalf("answer %s: expected completed, got %s", step, state)
	}
	return status
}

func TestSetupFlowCreatesTankAndEquipment(t *testing.T) {
	ctx := context.Background()
	audit := &captureAudit{}
	svc := newTestService(t, WithAuditRecorder(audit))

	status, err := svc.StartSetup(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := status.Session.ID
	if id == "" || status.Next != wizard.StepType || status.Complete {
		t.Fatalf("unexpected initial status %+v", status)
	}
	if len(status.Steps) != len(svc.SetupSteps()) {
		t.Fatalf("expected a state per step, got %d", len(status.Steps))
	}

	answer(t, svc, id, wizard.StepType, map[string]any{wizard.FieldAquariumType: "freshwater"})
	answer(t, svc, id, wizard.StepSize, map[string]any{wizard.FieldName: "Community", wizard.FieldVolumeGallons: 29.0})
	answer(t, svc, id, wizard.StepEquipment, map[string]any{wizard.FieldFilter: "Canister", wizard.FieldHeater: "Aqueon 100W"})

	if _, _, err := svc.CompleteSetup(ctx, id); !errors.Is(err, ErrSetupIncomplete) {
		t.Fatalf("expected incomplete error, got %v", err)
	}
	if len(svc.ListTanks()) != 0 {
		t.Fatalf("incomplete setup must not create a tank")
	}

	answer(t, svc, id, wizard.StepCycling, map[string]any{wizard.FieldCyclingMethod: "fishless"})
	status = answer(t, svc, id, wizard.StepLivestock, map[string]any{wizard.FieldLivestockNotes: "school of tetras"})
	if !status.Complete || status.Next != "" {
		t.Fatalf("expected complete status, got %+v", status)
	}

	tank, _, err := svc.CompleteSetup(ctx, id)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if tank.Name != "Community" || tank.VolumeGallons != 29 || tank.AquariumType != "freshwater" {
		t.Fatalf("unexpected tank %+v", tank)
	}
	if tank.SetupAt == nil || !tank.SetupAt.Equal(testNow) {
		t.Fatalf("expected setup time from service clock, got %v", tank.SetupAt)
	}
	if tank.Notes == nil || !strings.Contains(*tank.Notes, "livestock plan: school of tetras") || !strings.Contains(*tank.Notes, "cycling: fishless") {
		t.Fatalf("unexpected notes %v", tank.Notes)
	}
	equipment := svc.ListEquipment(tank.ID)
	types := map[string]string{}
	for _, e := range equipment {
		types[e.Type] = e.Name
	}
	if len(equipment) != 2 || types[domain.EquipmentFilter] != "Canister" || types[domain.EquipmentHeater] != "Aqueon 100W" {
		t.Fatalf("unexpected equipment %+v", equipment)
	}

	closed, err := svc.SetupStatus(id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if closed.Session.TankID == nil || *closed.Session.TankID != tank.ID || closed.Session.CompletedAt == nil {
		t.Fatalf("session not closed: %+v", closed.Session)
	}
	if _, _, err := svc.AnswerSetupStep(ctx, id, wizard.StepType, map[string]any{wizard.FieldAquariumType: "reef"}); !errors.Is(err, ErrSetupClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if _, _, err := svc.CompleteSetup(ctx, id); !errors.Is(err, ErrSetupClosed) {
		t.Fatalf("expected closed error on second completion, got %v", err)
	}
	entry := audit.last(t)
	if entry.Operation != "complete_setup" || entry.Status != AuditStatusError {
		t.Fatalf("unexpected last audit entry %+v", entry)
	}
}

func TestSetupValidationFailureKeepsAnswers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	status, err := svc.StartSetup(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := status.Session.ID
	answer(t, svc, id, wizard.StepType, map[string]any{wizard.FieldAquariumType: "reef"})

	status, state, err := svc.AnswerSetupStep(ctx, id, wizard.StepSize, map[string]any{wizard.FieldName: "Reef", wizard.FieldVolumeGallons: -5.0})
	var verr *wizard.ValidationError
	if !errors.As(err, &verr) || verr.Step != wizard.StepSize {
		t.Fatalf("expected validation error, got %v", err)
	}
	if state != wizard.StateAvailable {
		t.Fatalf("expected step to stay available, got %s", state)
	}
	if got := status.Answers.String(wizard.StepSize, wizard.FieldName); got != "Reef" {
		t.Fatalf("expected answers kept, got %q", got)
	}
	reloaded, err := svc.SetupStatus(id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if v, _ := reloaded.Answers.Float(wizard.StepSize, wizard.FieldVolumeGallons); v != -5 {
		t.Fatalf("expected invalid answer persisted, got %v", v)
	}
	if reloaded.Next != wizard.StepSize {
		t.Fatalf("expected size to be next, got %q", reloaded.Next)
	}
}

func TestSetupInvalidEditKeepsCompletionButBlocksCompletion(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	status, err := svc.StartSetup(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := status.Session.ID
	answer(t, svc, id, wizard.StepType, map[string]any{wizard.FieldAquariumType: "freshwater"})
	answer(t, svc, id, wizard.StepSize, map[string]any{wizard.FieldName: "Community", wizard.FieldVolumeGallons: 29.0})
	answer(t, svc, id, wizard.StepEquipment, map[string]any{wizard.FieldFilter: "Canister", wizard.FieldHeater: "Aqueon 100W"})
	answer(t, svc, id, wizard.StepCycling, map[string]any{wizard.FieldCyclingMethod: "fishless"})
	answer(t, svc, id, wizard.StepLivestock, map[string]any{wizard.FieldLivestockNotes: "shrimp colony"})

	_, state, err := svc.AnswerSetupStep(ctx, id, wizard.StepSize, map[string]any{wizard.FieldVolumeGallons: "abc"})
	var verr *wizard.ValidationError
	if !errors.As(err, &verr) || state != wizard.StateCompleted {
		t.Fatalf("expected validation error with completion kept, got %s %v", state, err)
	}
	if _, _, err := svc.CompleteSetup(ctx, id); !errors.Is(err, ErrSetupIncomplete) || !errors.As(err, &verr) {
		t.Fatalf("expected completion to re-validate answers, got %v", err)
	}
	if len(svc.ListTanks()) != 0 {
		t.Fatalf("invalid answers must not create a tank")
	}

	if _, err := svc.InvalidateSetupStep(ctx, id, wizard.StepSize); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	answer(t, svc, id, wizard.StepSize, map[string]any{wizard.FieldVolumeGallons: "40"})
	tank, _, err := svc.CompleteSetup(ctx, id)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if tank.VolumeGallons != 40 {
		t.Fatalf("expected 40 gallons, got %v", tank.VolumeGallons)
	}
}

func TestSetupUnknownStepAndSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	status, err := svc.StartSetup(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := svc.AnswerSetupStep(ctx, status.Session.ID, "lighting", map[string]any{"x": 1}); !errors.Is(err, wizard.ErrUnknownStep) {
		t.Fatalf("expected unknown step, got %v", err)
	}
	reloaded, _ := svc.SetupStatus(status.Session.ID)
	if len(reloaded.Answers) != 0 {
		t.Fatalf("unknown step must not be saved, got %+v", reloaded.Answers)
	}
	if _, err := svc.InvalidateSetupStep(ctx, status.Session.ID, "lighting"); !errors.Is(err, wizard.ErrUnknownStep) {
		t.Fatalf("expected unknown step on invalidate, got %v", err)
	}
	var nf ErrNotFound
	if _, err := svc.SetupStatus("missing"); !errors.As(err, &nf) || nf.Entity != EntitySetupSession {
		t.Fatalf("expected session not found, got %v", err)
	}
	if _, _, err := svc.AnswerSetupStep(ctx, "missing", wizard.StepType, nil); !errors.As(err, &nf) {
		t.Fatalf("expected session not found on answer, got %v", err)
	}
}

func TestSetupInvalidateAndReclassify(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	status, _ := svc.StartSetup(ctx)
	id := status.Session.ID
	answer(t, svc, id, wizard.StepType, map[string]any{wizard.FieldAquariumType: "freshwater"})
	answer(t, svc, id, wizard.StepSize, map[string]any{wizard.FieldName: "Tank", wizard.FieldVolumeGallons: 20.0})

	status, err := svc.InvalidateSetupStep(ctx, id, wizard.StepSize)
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if status.Next != wizard.StepSize {
		t.Fatalf("expected size to be next after invalidation, got %q", status.Next)
	}

	answer(t, svc, id, wizard.StepType, map[string]any{wizard.FieldAquariumType: "saltwater"})
	status, _ = svc.SetupStatus(id)
	for _, st := range status.Steps {
		if st.Key == wizard.StepSalinity && st.State == wizard.StateNotApplicable {
			t.Fatalf("salinity must apply to a saltwater tank")
		}
	}
}

func TestSetupReefCompletionIncludesSkimmer(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	status, _ := svc.StartSetup(ctx)
	id := status.Session.ID
	answer(t, svc, id, wizard.StepType, map[string]any{wizard.FieldAquariumType: "reef"})
	answer(t, svc, id, wizard.StepSize, map[string]any{wizard.FieldName: "Reef", wizard.FieldVolumeGallons: 40.0})
	answer(t, svc, id, wizard.StepSalinity, map[string]any{wizard.FieldSalinity: 1.025})
	answer(t, svc, id, wizard.StepCoral, map[string]any{wizard.FieldCoralFocus: "lps"})
	answer(t, svc, id, wizard.StepEquipment, map[string]any{
		wizard.FieldFilter:  "Sump",
		wizard.FieldHeater:  "Eheim Jager",
		wizard.FieldLight:   "AI Prime",
		wizard.FieldSkimmer: "Reef Octopus",
	})
	answer(t, svc, id, wizard.StepCycling, map[string]any{wizard.FieldCyclingMethod: "seeded"})
	answer(t, svc, id, wizard.StepLivestock, map[string]any{})

	tank, _, err := svc.CompleteSetup(ctx, id)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !tank.Classification().Reef {
		t.Fatalf("expected reef tank, got %+v", tank)
	}
	if got := len(svc.ListEquipment(tank.ID)); got != 4 {
		t.Fatalf("expected four equipment entries, got %d", got)
	}
	if tank.Notes == nil || !strings.Contains(*tank.Notes, "coral focus: lps") {
		t.Fatalf("unexpected notes %v", tank.Notes)
	}
}
