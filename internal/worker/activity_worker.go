// Package worker holds the background consumers run by clerk-worker.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"churchclerk/internal/amqp"
	clog "churchclerk/internal/log"
	"churchclerk/internal/metrics"
	"churchclerk/internal/records"
)

// ActivityWorker persists activity events consumed from the broker.
type ActivityWorker struct {
	store   records.ActivityStore
	metrics *metrics.Metrics
}

func NewActivityWorker(store records.ActivityStore, m *metrics.Metrics) *ActivityWorker {
	return &ActivityWorker{store: store, metrics: m}
}

// HandleActivityMessage appends one event to the audit trail. An error
// requeues the delivery.
func (w *ActivityWorker) HandleActivityMessage(ctx context.Context, msg *amqp.ActivityMessage) error {
	a := msg.Activity()
	if a.OccurredAt.IsZero() {
		return fmt.Errorf("activity %s for %s has no timestamp", a.Kind, a.RecordID)
	}
	if a.Actor == "" {
		a.Actor = "system"
	}

	if err := w.store.AppendActivity(ctx, a); err != nil {
		w.metrics.ObserveActivity(string(a.Kind), "store_error")
		return fmt.Errorf("append activity: %w", err)
	}
	w.metrics.ObserveActivity(string(a.Kind), "stored")

	slog.InfoContext(ctx, "Recorded activity",
		"kind", a.Kind,
		clog.FieldRecordID, a.RecordID,
		clog.FieldActor, a.Actor)
	return nil
}

// Consumer is satisfied by *amqp.Client.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// Run consumes until ctx is cancelled.
func (w *ActivityWorker) Run(ctx context.Context, c Consumer) error {
	err := c.Consume(ctx, w.HandleActivityMessage)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("consume activity: %w", err)
	}
	return nil
}
