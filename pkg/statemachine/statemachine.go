// Package statemachine evaluates transition tables for entities whose current
// state lives elsewhere, typically in a database row.
//
// A Definition is immutable after New and safe for concurrent use. It holds no
// current state: callers pass the persisted state to Fire and store the
// returned state themselves, usually from inside a transition Action so the
// write and the transition succeed or fail together.
//
//	def := statemachine.MustNew(
//	    statemachine.WithTransition(Draft, Published, Publish,
//	        statemachine.WithGuard(hasTitle),
//	        statemachine.WithAction(savePublished),
//	    ),
//	)
//	next, err := def.Fire(ctx, post.State, Publish, post)
package statemachine

import "context"

type State interface {
	Name() string
}

type Event interface {
	Name() string
}

// Action runs before the transition completes; an error aborts it.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard decides whether a transition may proceed.
type Guard func(ctx context.Context, from State, event Event, data any) bool

type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // All must pass
	Actions []Action // Executed in order
}

type StringState string

func (s StringState) Name() string { return string(s) }

type StringEvent string

func (e StringEvent) Name() string { return string(e) }
