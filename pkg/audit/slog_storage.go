package audit

import (
	"context"
	"log/slog"
)

// SlogStorage writes events as structured log records, for deployments that
// ship audit trails through their log pipeline.
type SlogStorage struct {
	log   *slog.Logger
	level slog.Level
}

func NewSlogStorage(log *slog.Logger) *SlogStorage {
	return &SlogStorage{log: log, level: slog.LevelInfo}
}

func (s *SlogStorage) Store(ctx context.Context, e Event) error {
	attrs := []slog.Attr{
		slog.String("audit_id", e.ID),
		slog.String("action", e.Action),
		slog.String("result", string(e.Result)),
		slog.Time("created_at", e.CreatedAt),
	}
	if e.UserID != "" {
		attrs = append(attrs, slog.String("user_id", e.UserID))
	}
	if e.Resource != "" {
		attrs = append(attrs, slog.String("resource", e.Resource), slog.String("resource_id", e.ResourceID))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}
	if e.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", e.RequestID))
	}
	if e.IP != "" {
		attrs = append(attrs, slog.String("ip", e.IP))
	}
	if len(e.Metadata) > 0 {
		meta := make([]any, 0, len(e.Metadata))
		for k, v := range e.Metadata {
			meta = append(meta, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", meta...))
	}

	s.log.LogAttrs(ctx, s.level, "audit", attrs...)
	return nil
}
