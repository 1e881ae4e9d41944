package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"churchclerk/internal/core"
	"churchclerk/internal/records"
)

// Policy decides which uncollected certificates are due another reminder.
type Policy struct {
	MinAge   time.Duration
	MaxCount int
}

// Due reports whether c should be reminded at now. Certificates never
// reminded before are always due.
func (p Policy) Due(c core.Certificate, now time.Time) bool {
	if c.IsPickedUp {
		return false
	}
	if p.MaxCount > 0 && c.ReminderCount >= p.MaxCount {
		return false
	}
	if c.LastReminderSent == nil {
		return true
	}
	return now.Sub(*c.LastReminderSent) >= p.MinAge
}

// Sweeper periodically reminds members who have not collected their
// certificates.
type Sweeper struct {
	store      records.CertificateStore
	dispatcher *Dispatcher
	policy     Policy
	channel    core.Channel
	now        func() time.Time
}

func NewSweeper(store records.CertificateStore, d *Dispatcher, policy Policy, ch core.Channel) *Sweeper {
	return &Sweeper{store: store, dispatcher: d, policy: policy, channel: ch, now: time.Now}
}

// Pending lists the certificates the next sweep would remind.
func (s *Sweeper) Pending(ctx context.Context) ([]core.Certificate, error) {
	notPicked := false
	certs, err := s.store.ListCertificates(ctx, records.CertificateFilter{PickedUp: &notPicked})
	if err != nil {
		return nil, fmt.Errorf("list uncollected certificates: %w", err)
	}
	now := s.now()
	due := certs[:0]
	for _, c := range certs {
		if s.policy.Due(c, now) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (s *Sweeper) RunOnce(ctx context.Context) (Outcome, error) {
	due, err := s.Pending(ctx)
	if err != nil {
		return Outcome{Channel: s.channel}, err
	}
	if len(due) == 0 {
		return Outcome{Channel: s.channel}, nil
	}
	return s.dispatcher.Dispatch(ctx, s.channel, due), nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Reminder sweep started", "interval", interval, "channel", s.channel)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Reminder sweep stopped")
			return nil
		case <-ticker.C:
			out, err := s.RunOnce(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Reminder sweep failed", "error", err)
				continue
			}
			if out.Sent+out.Failed+out.Skipped > 0 {
				slog.InfoContext(ctx, "Reminder sweep completed", "summary", out.Summary())
			}
		}
	}
}
