// Package wizard drives a guided setup flow made of dependent steps. Step
// states are derived from the registry and the stored progress on every read,
// so a stale completion flag can never misrepresent where the user is.
//
// A Machine performs no locking. Callers serialise access to one progress
// value themselves.
package wizard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStep is returned when a step key is not in the registry.
var ErrUnknownStep = errors.New("unknown wizard step")

// ErrCycle is returned when step dependencies form a cycle.
var ErrCycle = errors.New("wizard step dependency cycle")

// Step declares one page of the wizard.
type Step struct {
	Key       string
	Title     string
	DependsOn []string
	// Applicable reports whether the step is relevant given the answers so
	// far. A nil predicate means always applicable.
	Applicable func(Answers) bool
	// Rules are validator tags keyed by payload field, checked against the
	// step's merged answers before it may complete.
	Rules map[string]any
	// Numeric fields are converted to float64 before Rules run, so size
	// tags compare values rather than string lengths.
	Numeric []string
	// Validate runs after Rules for checks that span fields or steps.
	Validate func(answers Answers, fields map[string]any) error
}

func (s Step) applicable(a Answers) bool {
	return s.Applicable == nil || s.Applicable(a)
}

// Registry is an ordered, validated set of steps.
type Registry struct {
	steps []Step
	index map[string]int
}

// NewRegistry validates steps and returns them as a registry. Keys must be
// unique and non-empty, dependencies must name registered steps and the
// dependency graph must be acyclic.
func NewRegistry(steps ...Step) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(steps))}
	for _, s := range steps {
		key := strings.TrimSpace(s.Key)
		if key == "" {
			return nil, errors.New("wizard step key is required")
		}
		if key != s.Key {
			return nil, fmt.Errorf("wizard step key %q has surrounding whitespace", s.Key)
		}
		if _, dup := r.index[key]; dup {
			return nil, fmt.Errorf("duplicate wizard step %q", key)
		}
		r.index[key] = len(r.steps)
		s.DependsOn = append([]string(nil), s.DependsOn...)
		r.steps = append(r.steps, s)
	}
	for _, s := range r.steps {
		for _, dep := range s.DependsOn {
			if _, ok := r.index[dep]; !ok {
				return nil, fmt.Errorf("step %q depends on %w %q", s.Key, ErrUnknownStep, dep)
			}
		}
	}
	if err := r.checkCycles(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is NewRegistry for static step tables.
func MustRegistry(steps ...Step) *Registry {
	r, err := NewRegistry(steps...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) checkCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make([]int, len(r.steps))
	var visit func(i int, path []string) error
	visit = func(i int, path []string) error {
		switch marks[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(append(path, r.steps[i].Key), " -> "))
		}
		marks[i] = visiting
		path = append(path, r.steps[i].Key)
		for _, dep := range r.steps[i].DependsOn {
			if err := visit(r.index[dep], path); err != nil {
				return err
			}
		}
		marks[i] = done
		return nil
	}
	for i := range r.steps {
		if err := visit(i, nil); err != nil {
			return err
		}
	}
	return nil
}

// Step returns the step registered under key.
func (r *Registry) Step(key string) (Step, bool) {
	i, ok := r.index[key]
	if !ok {
		return Step{}, false
	}
	return r.steps[i], true
}

// Steps returns the steps in registration order.
func (r *Registry) Steps() []Step {
	return append([]Step(nil), r.steps...)
}

// Keys returns the step keys in registration order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.steps))
	for i, s := range r.steps {
		out[i] = s.Key
	}
	return out
}

// Len returns the number of registered steps.
func (r *Registry) Len() int { return len(r.steps) }
