package statemachine

import (
	"context"
	"fmt"
)

// Definition is a transition table keyed by source state and event name.
type Definition struct {
	transitions map[string]map[string][]Transition
}

// Option configures a Definition.
type Option func(*Definition) error

// TransitionOption attaches guards and actions to a transition.
type TransitionOption func(*Transition)

// New builds a Definition from options.
func New(opts ...Option) (*Definition, error) {
	d := &Definition{transitions: make(map[string]map[string][]Transition)}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustNew is New that panics on error, for package-level tables.
func MustNew(opts ...Option) *Definition {
	d, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return d
}

// WithTransition registers from --event--> to. Several transitions may share
// a source and event; the first whose guards all pass is taken.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(d *Definition) error {
		if from == nil || to == nil || event == nil {
			return ErrInvalidTransition
		}
		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		byEvent, ok := d.transitions[from.Name()]
		if !ok {
			byEvent = make(map[string][]Transition)
			d.transitions[from.Name()] = byEvent
		}
		byEvent[event.Name()] = append(byEvent[event.Name()], t)
		return nil
	}
}

func WithGuard(guard Guard) TransitionOption {
	return func(t *Transition) {
		if guard != nil {
			t.Guards = append(t.Guards, guard)
		}
	}
}

func WithAction(action Action) TransitionOption {
	return func(t *Transition) {
		if action != nil {
			t.Actions = append(t.Actions, action)
		}
	}
}

// Fire applies event to the entity currently in state from. It returns the
// destination state after every action of the chosen transition succeeded.
func (d *Definition) Fire(ctx context.Context, from State, event Event, data any) (State, error) {
	if from == nil || event == nil {
		return nil, ErrInvalidEvent
	}

	candidates := d.transitions[from.Name()][event.Name()]
	if len(candidates) == 0 {
		return from, NewErrNoTransitionAvailable(from.Name(), event.Name())
	}

	t, ok := firstAllowed(ctx, candidates, from, event, data)
	if !ok {
		return from, NewErrTransitionRejected(from.Name(), event.Name())
	}

	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event, data); err != nil {
			return from, fmt.Errorf("action failed: %w", err)
		}
	}
	return t.To, nil
}

// CanFire reports whether Fire would find a transition whose guards pass.
// Guards run, actions do not.
func (d *Definition) CanFire(ctx context.Context, from State, event Event, data any) bool {
	if from == nil || event == nil {
		return false
	}
	_, ok := firstAllowed(ctx, d.transitions[from.Name()][event.Name()], from, event, data)
	return ok
}

func firstAllowed(ctx context.Context, candidates []Transition, from State, event Event, data any) (Transition, bool) {
	for _, t := range candidates {
		allowed := true
		for _, guard := range t.Guards {
			if !guard(ctx, from, event, data) {
				allowed = false
				break
			}
		}
		if allowed {
			return t, true
		}
	}
	return Transition{}, false
}
