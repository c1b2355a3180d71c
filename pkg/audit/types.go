package audit

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome recorded with an event.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Event is one entry in the audit trail.
type Event struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Result     Result         `json:"result"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	IP         string         `json:"ip,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// Storage persists events.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

// StorageFunc adapts a function to Storage.
type StorageFunc func(ctx context.Context, event Event) error

func (f StorageFunc) Store(ctx context.Context, event Event) error { return f(ctx, event) }

// EventOption customises a single event.
type EventOption func(*Event)

func WithUserID(id string) EventOption {
	return func(e *Event) { e.UserID = id }
}

func WithResource(resource, id string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = id
	}
}

func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

func WithResult(result Result) EventOption {
	return func(e *Event) { e.Result = result }
}
