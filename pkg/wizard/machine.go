package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"tankcore/pkg/domain"
)

// Progress is the persisted wizard state handed to the storage layer.
type Progress = domain.SetupProgress

// State is the derived status of a step.
type State string

// Step states.
const (
	StateNotApplicable State = "not-applicable"
	StateLocked        State = "locked"
	StateAvailable     State = "available"
	StateCompleted     State = "completed"
)

// Answers maps step keys to the fields recorded for that step.
type Answers map[string]map[string]any

// Field returns a raw answer value.
func (a Answers) Field(step, field string) (any, bool) {
	fields, ok := a[step]
	if !ok {
		return nil, false
	}
	v, ok := fields[field]
	return v, ok
}

// String returns an answer rendered as a trimmed string, or "".
func (a Answers) String(step, field string) string {
	v, ok := a.Field(step, field)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Float returns a numeric answer. Strings holding numbers are accepted.
func (a Answers) Float(step, field string) (float64, bool) {
	v, ok := a.Field(step, field)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns a boolean answer, treating absent values as false.
func (a Answers) Bool(step, field string) bool {
	v, _ := a.Field(step, field)
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, _ := strconv.ParseBool(strings.TrimSpace(b))
		return ok
	default:
		return false
	}
}

// ValidationError lists the fields of a step payload that failed validation.
type ValidationError struct {
	Step   string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return fmt.Sprintf("step %q invalid: %s", e.Step, strings.Join(parts, "; "))
}

// FieldError builds a single-field validation failure for use in a step's
// Validate hook.
func FieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

var validate = validator.New()

// StepState pairs a step with its derived state.
type StepState struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	State State  `json:"state"`
}

// Machine evaluates and mutates wizard progress against a registry.
type Machine struct {
	reg      *Registry
	progress Progress
}

// New returns a machine over reg starting from progress, which is copied.
func New(reg *Registry, progress Progress) *Machine {
	m := &Machine{reg: reg}
	m.Restore(progress)
	return m
}

// Restore replaces the machine's progress with a copy of p.
func (m *Machine) Restore(p Progress) {
	p = p.Clone()
	if p.Answers == nil {
		p.Answers = make(map[string]map[string]any)
	}
	if p.CompletedSteps == nil {
		p.CompletedSteps = []string{}
	}
	m.progress = p
}

// Snapshot returns a copy of the stored progress, including completion
// entries that are no longer applicable.
func (m *Machine) Snapshot() Progress { return m.progress.Clone() }

// Answers returns a copy of the accumulated answers.
func (m *Machine) Answers() Answers {
	return Answers(m.progress.Clone().Answers)
}

// Registry returns the machine's step registry.
func (m *Machine) Registry() *Registry { return m.reg }

func (m *Machine) answers() Answers { return Answers(m.progress.Answers) }

func (m *Machine) recorded(key string) bool {
	for _, k := range m.progress.CompletedSteps {
		if k == key {
			return true
		}
	}
	return false
}

// satisfied reports whether a dependency no longer blocks its dependants: it
// is either completed or not relevant to the current answers.
func (m *Machine) satisfied(dep string, a Answers) bool {
	s, ok := m.reg.Step(dep)
	if !ok {
		return false
	}
	return !s.applicable(a) || m.recorded(dep)
}

func (m *Machine) derive(s Step, a Answers) State {
	if !s.applicable(a) {
		return StateNotApplicable
	}
	for _, dep := range s.DependsOn {
		if !m.satisfied(dep, a) {
			return StateLocked
		}
	}
	if m.recorded(s.Key) {
		return StateCompleted
	}
	return StateAvailable
}

// State returns the derived state of one step.
func (m *Machine) State(key string) (State, error) {
	s, ok := m.reg.Step(key)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownStep, key)
	}
	return m.derive(s, m.answers()), nil
}

// States returns every step's derived state in registry order.
func (m *Machine) States() []StepState {
	a := m.answers()
	out := make([]StepState, 0, m.reg.Len())
	for _, s := range m.reg.steps {
		out = append(out, StepState{Key: s.Key, Title: s.Title, State: m.derive(s, a)})
	}
	return out
}

// CompletedSteps returns the keys whose completion is still valid under the
// current answers, in registry order.
func (m *Machine) CompletedSteps() []string {
	var out []string
	for _, st := range m.States() {
		if st.State == StateCompleted {
			out = append(out, st.Key)
		}
	}
	return out
}

// Next returns the first available step in registry order.
func (m *Machine) Next() (Step, bool) {
	a := m.answers()
	for _, s := range m.reg.steps {
		if m.derive(s, a) == StateAvailable {
			return s, true
		}
	}
	return Step{}, false
}

// IsComplete reports whether every currently applicable step is completed.
func (m *Machine) IsComplete() bool {
	a := m.answers()
	for _, s := range m.reg.steps {
		switch m.derive(s, a) {
		case StateNotApplicable, StateCompleted:
		default:
			return false
		}
	}
	return true
}

// RecordAnswer merges payload into the step's answers, last write wins, and
// marks the step completed when it is reachable and its validation passes.
// Completion of other steps is left untouched. A payload for a locked or
// not-applicable step is kept without completing the step. When validation
// fails the answers are kept and a *ValidationError is returned; an earlier
// completion stays recorded until InvalidateStep clears it.
func (m *Machine) RecordAnswer(key string, payload map[string]any) (State, error) {
	s, ok := m.reg.Step(key)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownStep, key)
	}
	fields := m.progress.Answers[key]
	if fields == nil {
		fields = make(map[string]any, len(payload))
		m.progress.Answers[key] = fields
	}
	for k, v := range payload {
		fields[k] = v
	}

	a := m.answers()
	switch st := m.derive(s, a); st {
	case StateNotApplicable, StateLocked:
		return st, nil
	}
	if err := checkStep(s, a, fields); err != nil {
		return m.derive(s, a), err
	}
	if !m.recorded(key) {
		m.progress.CompletedSteps = append(m.progress.CompletedSteps, key)
	}
	return StateCompleted, nil
}

// Verify re-runs validation for every completed step against the current
// answers and returns the first failure.
func (m *Machine) Verify() error {
	a := m.answers()
	for _, s := range m.reg.steps {
		if m.derive(s, a) != StateCompleted {
			continue
		}
		if err := checkStep(s, a, a[s.Key]); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateStep removes the step's completion and reports whether it was
// recorded as completed.
func (m *Machine) InvalidateStep(key string) bool {
	return m.remove(key)
}

func (m *Machine) remove(key string) bool {
	kept := m.progress.CompletedSteps[:0]
	removed := false
	for _, k := range m.progress.CompletedSteps {
		if k == key {
			removed = true
			continue
		}
		kept = append(kept, k)
	}
	m.progress.CompletedSteps = kept
	return removed
}

func checkStep(s Step, a Answers, fields map[string]any) error {
	verr := &ValidationError{Step: s.Key, Fields: make(map[string]string)}
	checked := fields
	if len(s.Numeric) > 0 {
		checked = make(map[string]any, len(fields))
		for k, v := range fields {
			checked[k] = v
		}
		own := Answers{s.Key: fields}
		for _, field := range s.Numeric {
			if _, ok := fields[field]; !ok {
				continue
			}
			f, ok := own.Float(s.Key, field)
			if !ok {
				verr.Fields[field] = "must be a number"
				continue
			}
			checked[field] = f
		}
	}
	if len(s.Rules) > 0 {
		for field, err := range validate.ValidateMap(checked, s.Rules) {
			if _, seen := verr.Fields[field]; !seen {
				verr.Fields[field] = describe(err)
			}
		}
	}
	if len(verr.Fields) == 0 && s.Validate != nil {
		if err := s.Validate(a, fields); err != nil {
			var fe *ValidationError
			if errors.As(err, &fe) {
				for k, v := range fe.Fields {
					verr.Fields[k] = v
				}
			} else {
				verr.Fields[s.Key] = err.Error()
			}
		}
	}
	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func describe(err any) string {
	var ve validator.ValidationErrors
	if e, ok := err.(error); ok && errors.As(e, &ve) && len(ve) > 0 {
		fe := ve[0]
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		}
		return "failed " + fe.Tag()
	}
	return fmt.Sprint(err)
}
