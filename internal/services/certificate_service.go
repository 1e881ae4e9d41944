package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"churchclerk/internal/activity"
	"churchclerk/internal/core"
	"churchclerk/internal/records"
	"churchclerk/internal/reminder"
)

// Bulk actions accepted by CertificateService.RunAction.
const (
	ActionMarkPickedUp = "mark_picked_up"
	ActionSendSMS      = "send_sms"
	ActionSendEmail    = "send_email"
	ActionSendWhatsApp = "send_whatsapp"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNoSelection   = errors.New("no records selected")
)

// Invalidator is told when records feeding the reports change.
type Invalidator interface {
	Invalidate()
}

// CertificateService orchestrates certificate writes, pick-up tracking and reminders.
type CertificateService struct {
	store      records.CertificateStore
	dispatcher *reminder.Dispatcher
	events     *activity.Emitter
	reports    Invalidator
	now        func() time.Time
}

func NewCertificateService(store records.CertificateStore, d *reminder.Dispatcher, events *activity.Emitter, reports Invalidator) *CertificateService {
	return &CertificateService{
		store:      store,
		dispatcher: d,
		events:     events,
		reports:    reports,
		now:        time.Now,
	}
}

func (s *CertificateService) Create(ctx context.Context, c core.Certificate) (core.Certificate, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.DateAdded = s.now().UTC()
	c.ReminderCount = 0
	c.LastReminderSent = nil
	if err := c.Validate(); err != nil {
		return core.Certificate{}, err
	}
	if err := s.store.CreateCertificate(ctx, c); err != nil {
		return core.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}
	s.changed()
	return c, nil
}

// Update replaces the editable fields. Reminder history and DateAdded are
// carried over from the stored record.
func (s *CertificateService) Update(ctx context.Context, c core.Certificate) (core.Certificate, error) {
	prev, err := s.store.GetCertificate(ctx, c.ID)
	if err != nil {
		return core.Certificate{}, err
	}
	c.DateAdded = prev.DateAdded
	c.ReminderCount = prev.ReminderCount
	c.LastReminderSent = prev.LastReminderSent
	if err := c.Validate(); err != nil {
		return core.Certificate{}, err
	}
	if err := s.store.UpdateCertificate(ctx, c); err != nil {
		return core.Certificate{}, fmt.Errorf("update certificate: %w", err)
	}
	if c.IsPickedUp && !prev.IsPickedUp {
		s.events.Emit(ctx, core.ActivityPickedUp, c.ID, c.FullName)
	}
	s.changed()
	return c, nil
}

func (s *CertificateService) Get(ctx context.Context, id string) (core.Certificate, error) {
	return s.store.GetCertificate(ctx, id)
}

func (s *CertificateService) List(ctx context.Context, f records.CertificateFilter) ([]core.Certificate, error) {
	return s.store.ListCertificates(ctx, f)
}

func (s *CertificateService) MarkPickedUp(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoSelection
	}
	changed, err := s.store.MarkPickedUp(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("mark picked up: %w", err)
	}
	for _, id := range changed {
		s.events.Emit(ctx, core.ActivityPickedUp, id, "")
	}
	slog.InfoContext(ctx, "Marked certificates picked up", "requested", len(ids), "updated", len(changed))
	return len(changed), nil
}

// SendReminders dispatches one reminder per selected certificate.
func (s *CertificateService) SendReminders(ctx context.Context, ch core.Channel, ids []string) (reminder.Outcome, error) {
	if !ch.Valid() {
		return reminder.Outcome{}, fmt.Errorf("%w: channel %q", ErrUnknownAction, ch)
	}
	if len(ids) == 0 {
		return reminder.Outcome{}, ErrNoSelection
	}
	certs, err := s.store.ListCertificates(ctx, records.CertificateFilter{IDs: ids})
	if err != nil {
		return reminder.Outcome{}, fmt.Errorf("load certificates: %w", err)
	}
	return s.dispatcher.Dispatch(ctx, ch, certs), nil
}

// RunAction executes a bulk action and returns the staff-facing message.
func (s *CertificateService) RunAction(ctx context.Context, action string, ids []string) (string, error) {
	var ch core.Channel
	switch action {
	case ActionMarkPickedUp:
		n, err := s.MarkPickedUp(ctx, ids)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d certificate(s) marked as picked up.", n), nil
	case ActionSendSMS:
		ch = core.ChannelSMS
	case ActionSendEmail:
		ch = core.ChannelEmail
	case ActionSendWhatsApp:
		ch = core.ChannelWhatsApp
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	out, err := s.SendReminders(ctx, ch, ids)
	if err != nil {
		return "", err
	}
	return out.Summary(), nil
}

func (s *CertificateService) changed() {
	if s.reports != nil {
		s.reports.Invalidate()
	}
}
