package telemetry

import (
	"context"

	"coursedesk/backend/internal/telemetry/domain"
)

// EventEmitter emits telemetry events (e.g. to Kafka or OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// MultiEmitter fans an event out to several emitters. The first failure is
// returned after all emitters have been tried.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event *domain.Event) error {
	var firstErr error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
