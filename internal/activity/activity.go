// Package activity records the clerk's audit trail. Events go either to the
// message broker or straight into the record store.
package activity

import (
	"context"
	"log/slog"
	"time"

	"churchclerk/internal/core"
	"churchclerk/internal/metrics"
	"churchclerk/internal/records"
)

type Publisher interface {
	Publish(ctx context.Context, a core.Activity) error
}

// StoreRecorder appends events directly when no broker is configured.
type StoreRecorder struct {
	store records.ActivityStore
}

func NewStoreRecorder(store records.ActivityStore) *StoreRecorder {
	return &StoreRecorder{store: store}
}

func (r *StoreRecorder) Publish(ctx context.Context, a core.Activity) error {
	return r.store.AppendActivity(ctx, a)
}

// Emitter stamps and publishes events. Publishing failures are logged and
// never reach the caller.
type Emitter struct {
	publisher Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewEmitter(p Publisher, m *metrics.Metrics) *Emitter {
	return &Emitter{publisher: p, metrics: m, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, kind core.ActivityKind, recordID, detail string) {
	if e == nil || e.publisher == nil {
		return
	}
	a := core.Activity{
		Kind:       kind,
		RecordID:   recordID,
		Detail:     detail,
		Actor:      ActorFromContext(ctx),
		OccurredAt: e.now().UTC(),
	}
	if err := e.publisher.Publish(ctx, a); err != nil {
		slog.WarnContext(ctx, "Failed to publish activity",
			"kind", kind,
			"record_id", recordID,
			"error", err)
		e.metrics.ObserveActivity(string(kind), "error")
		return
	}
	e.metrics.ObserveActivity(string(kind), "published")
}

type actorKey struct{}

// WithActor tags the context with the staff member acting on records.
func WithActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, actorKey{}, username)
}

func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return "system"
}
