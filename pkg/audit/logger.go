// Package audit records security-relevant events to a pluggable Storage.
//
// Events carry a generated ID, timestamp, action name and result, plus
// request-scoped values pulled from the context by optional extractors.
// Plaintext secrets must never be passed in metadata.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextExtractor func(context.Context) (string, bool)

// Logger writes audit events.
type Logger struct {
	storage            Storage
	now                func() time.Time
	userIDExtractor    contextExtractor
	requestIDExtractor contextExtractor
	ipExtractor        contextExtractor
}

type Option func(*Logger)

func WithUserIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.userIDExtractor = fn }
}

func WithRequestIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.requestIDExtractor = fn }
}

func WithIPExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.ipExtractor = fn }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger creates an audit logger writing to storage.
func NewLogger(storage Storage, opts ...Option) (*Logger, error) {
	if storage == nil {
		return nil, ErrNilStorage
	}
	l := &Logger{storage: storage, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Log records a successful action unless an option overrides the result.
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	return l.write(ctx, action, ResultSuccess, nil, opts)
}

// LogError records a failed action together with its error.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	return l.write(ctx, action, ResultError, err, opts)
}

func (l *Logger) write(ctx context.Context, action string, result Result, cause error, opts []EventOption) error {
	event := Event{
		ID:        uuid.New().String(),
		Action:    action,
		Result:    result,
		CreatedAt: l.now().UTC(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	l.fromContext(ctx, &event)

	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}
	return l.storage.Store(ctx, event)
}

func (l *Logger) fromContext(ctx context.Context, e *Event) {
	if ctx == nil {
		return
	}
	if l.userIDExtractor != nil {
		if v, ok := l.userIDExtractor(ctx); ok {
			e.UserID = v
		}
	}
	if l.requestIDExtractor != nil {
		if v, ok := l.requestIDExtractor(ctx); ok {
			e.RequestID = v
		}
	}
	if l.ipExtractor != nil {
		if v, ok := l.ipExtractor(ctx); ok {
			e.IP = v
		}
	}
}
