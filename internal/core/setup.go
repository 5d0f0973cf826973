package core

import (
	"context"
	"fmt"
	"strings"

	"tankcore/pkg/domain"
	"tankcore/pkg/wizard"
)

// SetupStatus is the derived view of a setup session.
type SetupStatus struct {
	Session  SetupSession       `json:"session"`
	Steps    []wizard.StepState `json:"steps"`
	Next     string             `json:"next,omitempty"`
	Complete bool               `json:"complete"`
	Answers  wizard.Answers     `json:"answers"`
}

func (s *Service) status(sess SetupSession) SetupStatus {
	m := wizard.New(s.setup, sess.Progress)
	st := SetupStatus{
		Session:  sess,
		Steps:    m.States(),
		Complete: m.IsComplete(),
		Answers:  m.Answers(),
	}
	if next, ok := m.Next(); ok {
		st.Next = next.Key
	}
	return st
}

func (s *Service) openSession(tx Transaction, id string) (SetupSession, error) {
	sess, ok := tx.FindSetupSession(id)
	if !ok {
		return SetupSession{}, ErrNotFound{Entity: EntitySetupSession, ID: id}
	}
	if sess.CompletedAt != nil {
		return SetupSession{}, fmt.Errorf("%w: %s", ErrSetupClosed, id)
	}
	return sess, nil
}

// SetupSteps returns the steps of the setup flow in order.
func (s *Service) SetupSteps() []wizard.Step { return s.setup.Steps() }

// StartSetup opens a new setup session with no answers.
func (s *Service) StartSetup(ctx context.Context) (SetupStatus, error) {
	var created SetupSession
	_, err := s.run(ctx, "start_setup", func() string { return created.ID }, func(tx Transaction) error {
		var err error
		created, err = tx.SaveSetupSession(SetupSession{Progress: wizard.Progress{}})
		return err
	})
	if err != nil {
		return SetupStatus{}, err
	}
	return s.status(created), nil
}

// SetupStatus returns the derived state of a session.
func (s *Service) SetupStatus(id string) (SetupStatus, error) {
	sess, ok := s.store.GetSetupSession(id)
	if !ok {
		return SetupStatus{}, ErrNotFound{Entity: EntitySetupSession, ID: id}
	}
	return s.status(sess), nil
}

// AnswerSetupStep records answers for one step. Answers are persisted even
// when validation fails so the user can correct them; the returned error is
// then a *wizard.ValidationError. A step that was already completed stays
// completed until InvalidateSetupStep clears it.
func (s *Service) AnswerSetupStep(ctx context.Context, id, step string, payload map[string]any) (SetupStatus, wizard.State, error) {
	var (
		saved   SetupSession
		state   wizard.State
		stepErr error
	)
	_, err := s.run(ctx, "answer_setup_step", func() string { return id }, func(tx Transaction) error {
		sess, err := s.openSession(tx, id)
		if err != nil {
			return err
		}
		m := wizard.New(s.setup, sess.Progress)
		state, stepErr = m.RecordAnswer(step, payload)
		if stepErr != nil && state == "" {
			return stepErr
		}
		sess.Progress = m.Snapshot()
		saved, err = tx.SaveSetupSession(sess)
		return err
	})
	if err != nil {
		return SetupStatus{}, state, err
	}
	return s.status(saved), state, stepErr
}

// InvalidateSetupStep clears a step's completion so it must be answered again.
func (s *Service) InvalidateSetupStep(ctx context.Context, id, step string) (SetupStatus, error) {
	var saved SetupSession
	_, err := s.run(ctx, "invalidate_setup_step", func() string { return id }, func(tx Transaction) error {
		sess, err := s.openSession(tx, id)
		if err != nil {
			return err
		}
		if _, ok := s.setup.Step(step); !ok {
			return fmt.Errorf("%w %q", wizard.ErrUnknownStep, step)
		}
		m := wizard.New(s.setup, sess.Progress)
		m.InvalidateStep(step)
		sess.Progress = m.Snapshot()
		saved, err = tx.SaveSetupSession(sess)
		return err
	})
	if err != nil {
		return SetupStatus{}, err
	}
	return s.status(saved), nil
}

// CompleteSetup creates the tank and its equipment roster from a finished
// session and closes the session, all in one transaction.
func (s *Service) CompleteSetup(ctx context.Context, id string) (Tank, Result, error) {
	var tank Tank
	res, err := s.run(ctx, "complete_setup", func() string { return id }, func(tx Transaction) error {
		sess, err := s.openSession(tx, id)
		if err != nil {
			return err
		}
		m := wizard.New(s.setup, sess.Progress)
		if !m.IsComplete() {
			next := ""
			if step, ok := m.Next(); ok {
				next = step.Key
			}
			return fmt.Errorf("%w: next step %q", ErrSetupIncomplete, next)
		}
		if err := m.Verify(); err != nil {
			return fmt.Errorf("%w: %w", ErrSetupIncomplete, err)
		}
		a := m.Answers()
		now := s.now()
		draft := tankFromAnswers(a)
		draft.SetupAt = &now
		if err := validateTank(draft); err != nil {
			return err
		}
		tank, err = tx.CreateTank(draft)
		if err != nil {
			return err
		}
		for _, e := range equipmentFromAnswers(a) {
			e.TankID = tank.ID
			if _, err := tx.CreateEquipment(e); err != nil {
				return err
			}
		}
		tankID := tank.ID
		sess.TankID = &tankID
		sess.CompletedAt = &now
		_, err = tx.SaveSetupSession(sess)
		return err
	})
	return tank, res, err
}

func tankFromAnswers(a wizard.Answers) Tank {
	volume, _ := a.Float(wizard.StepSize, wizard.FieldVolumeGallons)
	t := Tank{
		Name:          a.String(wizard.StepSize, wizard.FieldName),
		AquariumType:  a.String(wizard.StepType, wizard.FieldAquariumType),
		VolumeGallons: volume,
	}
	var notes []string
	if v, ok := a.Float(wizard.StepSalinity, wizard.FieldSalinity); ok {
		notes = append(notes, fmt.Sprintf("target salinity %.3f", v))
	}
	if v := a.String(wizard.StepCO2, wizard.FieldCO2Method); v != "" {
		notes = append(notes, "co2: "+v)
	}
	if v := a.String(wizard.StepCoral, wizard.FieldCoralFocus); v != "" {
		notes = append(notes, "coral focus: "+v)
	}
	if v := a.String(wizard.StepCycling, wizard.FieldCyclingMethod); v != "" {
		notes = append(notes, "cycling: "+v)
	}
	if v := a.String(wizard.StepLivestock, wizard.FieldLivestockNotes); v != "" {
		notes = append(notes, "livestock plan: "+v)
	}
	if len(notes) > 0 {
		joined := strings.Join(notes, "; ")
		t.Notes = &joined
	}
	return t
}

func equipmentFromAnswers(a wizard.Answers) []EquipmentEntry {
	fields := []struct {
		field string
		typ   string
	}{
		{wizard.FieldFilter, domain.EquipmentFilter},
		{wizard.FieldHeater, domain.EquipmentHeater},
		{wizard.FieldLight, domain.EquipmentLight},
		{wizard.FieldSkimmer, domain.EquipmentSkimmer},
	}
	var out []EquipmentEntry
	for _, f := range fields {
		name := a.String(wizard.StepEquipment, f.field)
		if name == "" {
			continue
		}
		out = append(out, EquipmentEntry{Type: f.typ, Name: name})
	}
	return out
}
