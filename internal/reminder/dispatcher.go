package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"churchclerk/internal/activity"
	"churchclerk/internal/core"
	clog "churchclerk/internal/log"
	"churchclerk/internal/metrics"
	"churchclerk/internal/notify"
)

// Bookkeeper stores reminder history on the certificate.
type Bookkeeper interface {
	RecordReminder(ctx context.Context, id string, at time.Time) error
}

// Outcome tallies one dispatch run. Skipped records had no contact for the
// channel and are counted in neither Sent nor Failed.
type Outcome struct {
	Channel core.Channel
	Sent    int
	Failed  int
	Skipped int
	SentIDs []string
}

// Summary is the confirmation shown to staff after a bulk send.
func (o Outcome) Summary() string {
	noun := "reminders"
	if o.Sent == 1 {
		noun = "reminder"
	}
	parts := []string{fmt.Sprintf("Sent %d %s %s.", o.Sent, o.Channel.Label(), noun)}
	if o.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed.", o.Failed))
	}
	if o.Skipped > 0 {
		field := "a phone number"
		if o.Channel == core.ChannelEmail {
			field = "an email address"
		}
		parts = append(parts, fmt.Sprintf("%d skipped without %s.", o.Skipped, field))
	}
	return strings.Join(parts, " ")
}

type Dispatcher struct {
	gateway notify.Gateway
	books   Bookkeeper
	events  *activity.Emitter
	metrics *metrics.Metrics
	org     string
	now     func() time.Time
}

func NewDispatcher(gateway notify.Gateway, books Bookkeeper, events *activity.Emitter, m *metrics.Metrics, org string) *Dispatcher {
	return &Dispatcher{
		gateway: gateway,
		books:   books,
		events:  events,
		metrics: m,
		org:     org,
		now:     time.Now,
	}
}

// Dispatch sends one reminder per certificate, in order, with a single
// attempt each. A successful send is written back through the Bookkeeper;
// bookkeeping errors are logged and do not change the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ch core.Channel, certs []core.Certificate) Outcome {
	out := Outcome{Channel: ch}
	for _, c := range certs {
		msg := Compose(ch, c, d.org)
		if msg.Recipient == "" {
			out.Skipped++
			d.metrics.ObserveReminder(string(ch), metrics.ResultSkipped)
			slog.DebugContext(ctx, "Reminder skipped, no contact", recordFields(c, ch).ToSlice()...)
			continue
		}

		if !d.gateway.Send(ctx, msg) {
			out.Failed++
			d.metrics.ObserveReminder(string(ch), metrics.ResultFailed)
			slog.WarnContext(ctx, "Reminder not delivered", recordFields(c, ch).ToSlice()...)
			continue
		}

		out.Sent++
		out.SentIDs = append(out.SentIDs, c.ID)
		d.metrics.ObserveReminder(string(ch), metrics.ResultSent)

		if d.books != nil {
			if err := d.books.RecordReminder(ctx, c.ID, d.now().UTC()); err != nil {
				slog.WarnContext(ctx, "Failed to record reminder", recordFields(c, ch).WithError(err).ToSlice()...)
			}
		}
		d.events.Emit(ctx, core.ActivityReminderSent, c.ID, string(ch))
	}

	slog.InfoContext(ctx, "Reminder dispatch finished",
		"channel", ch,
		"sent", out.Sent,
		"failed", out.Failed,
		"skipped", out.Skipped)
	return out
}

func recordFields(c core.Certificate, ch core.Channel) clog.LogFields {
	f := clog.NewFields().
		WithOperation(clog.OpDispatch).
		WithRecord(strings.ToLower(string(c.Type)), c.ID)
	f[clog.FieldChannel] = string(ch)
	return f
}
