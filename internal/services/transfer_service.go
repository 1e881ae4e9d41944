package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"churchclerk/internal/activity"
	"churchclerk/internal/core"
	"churchclerk/internal/records"
)

// TransferService owns the transfer write path. Every save goes through
// ApplyStageInvariant first.
type TransferService struct {
	store   records.TransferStore
	events  *activity.Emitter
	reports Invalidator
	loc     *time.Location
	now     func() time.Time
}

func NewTransferService(store records.TransferStore, events *activity.Emitter, reports Invalidator, loc *time.Location) *TransferService {
	if loc == nil {
		loc = time.UTC
	}
	return &TransferService{store: store, events: events, reports: reports, loc: loc, now: time.Now}
}

func (s *TransferService) today() core.Date {
	return core.DateOf(s.now().In(s.loc))
}

func (s *TransferService) Create(ctx context.Context, t core.MemberTransfer) (core.MemberTransfer, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Stage == "" {
		t.Stage = core.StageProcessing
	}
	now := s.now()
	t.DateStarted = now.UTC()
	t.LastUpdated = now.UTC()
	t.ApplyStageInvariant(s.today())
	if err := t.Validate(); err != nil {
		return core.MemberTransfer{}, err
	}
	if err := s.store.CreateTransfer(ctx, t); err != nil {
		return core.MemberTransfer{}, fmt.Errorf("create transfer: %w", err)
	}
	s.changed()
	return t, nil
}

// Save updates a transfer. Moving out of FINALIZED clears the completion
// date; entering it without one stamps today.
func (s *TransferService) Save(ctx context.Context, t core.MemberTransfer) (core.MemberTransfer, error) {
	prev, err := s.store.GetTransfer(ctx, t.ID)
	if err != nil {
		return core.MemberTransfer{}, err
	}
	t.DateStarted = prev.DateStarted
	t.LastUpdated = s.now().UTC()
	t.ApplyStageInvariant(s.today())
	if err := t.Validate(); err != nil {
		return core.MemberTransfer{}, err
	}
	if err := s.store.UpdateTransfer(ctx, t); err != nil {
		return core.MemberTransfer{}, fmt.Errorf("update transfer: %w", err)
	}
	if prev.Stage != t.Stage {
		s.events.Emit(ctx, core.ActivityStageChanged, t.ID, fmt.Sprintf("%s -> %s", prev.Stage, t.Stage))
	}
	s.changed()
	return t, nil
}

func (s *TransferService) Get(ctx context.Context, id string) (core.MemberTransfer, error) {
	return s.store.GetTransfer(ctx, id)
}

func (s *TransferService) List(ctx context.Context, f records.TransferFilter) ([]core.MemberTransfer, error) {
	return s.store.ListTransfers(ctx, f)
}

func (s *TransferService) changed() {
	if s.reports != nil {
		s.reports.Invalidate()
	}
}
