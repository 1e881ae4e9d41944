package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"churchclerk/internal/activity"
	"churchclerk/internal/core"
	"churchclerk/internal/media"
	"churchclerk/internal/records"
)

// Upload is a sign-in sheet image received from staff.
type Upload struct {
	Filename string
	Data     []byte
}

// CommunionService records communion services and their sign-in sheets.
type CommunionService struct {
	store   records.CommunionStore
	media   *media.Store
	events  *activity.Emitter
	reports Invalidator
}

func NewCommunionService(store records.CommunionStore, m *media.Store, events *activity.Emitter, reports Invalidator) *CommunionService {
	return &CommunionService{store: store, media: m, events: events, reports: reports}
}

func (s *CommunionService) Create(ctx context.Context, r core.CommunionRecord, sheet *Upload) (core.CommunionRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.SheetImage = ""
	if err := r.Validate(); err != nil {
		return core.CommunionRecord{}, err
	}
	if sheet != nil {
		key, err := s.saveSheet(sheet)
		if err != nil {
			return core.CommunionRecord{}, err
		}
		r.SheetImage = key
	}
	if err := s.store.CreateCommunion(ctx, r); err != nil {
		s.discard(ctx, r.SheetImage)
		return core.CommunionRecord{}, fmt.Errorf("create communion record: %w", err)
	}
	s.events.Emit(ctx, core.ActivityCommunionRecorded, r.ID, fmt.Sprintf("%s: %d participants", r.Date, r.ParticipantsCount))
	s.changed()
	return r, nil
}

// Update replaces date and count. A new sheet replaces the stored one;
// without one the existing image is kept.
func (s *CommunionService) Update(ctx context.Context, r core.CommunionRecord, sheet *Upload) (core.CommunionRecord, error) {
	prev, err := s.store.GetCommunion(ctx, r.ID)
	if err != nil {
		return core.CommunionRecord{}, err
	}
	r.SheetImage = prev.SheetImage
	if err := r.Validate(); err != nil {
		return core.CommunionRecord{}, err
	}
	if sheet != nil {
		key, err := s.saveSheet(sheet)
		if err != nil {
			return core.CommunionRecord{}, err
		}
		r.SheetImage = key
	}
	if err := s.store.UpdateCommunion(ctx, r); err != nil {
		if r.SheetImage != prev.SheetImage {
			s.discard(ctx, r.SheetImage)
		}
		return core.CommunionRecord{}, fmt.Errorf("update communion record: %w", err)
	}
	if r.SheetImage != prev.SheetImage {
		s.discard(ctx, prev.SheetImage)
	}
	s.changed()
	return r, nil
}

func (s *CommunionService) Get(ctx context.Context, id string) (core.CommunionRecord, error) {
	return s.store.GetCommunion(ctx, id)
}

func (s *CommunionService) List(ctx context.Context, f records.CommunionFilter) ([]core.CommunionRecord, error) {
	return s.store.ListCommunions(ctx, f)
}

// SheetPreview returns a JPEG of the record's sheet scaled to fit the box.
func (s *CommunionService) SheetPreview(ctx context.Context, id string, maxW, maxH int) ([]byte, error) {
	r, err := s.store.GetCommunion(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.SheetImage == "" || s.media == nil {
		return nil, core.ErrNotFound
	}
	return s.media.Preview(r.SheetImage, maxW, maxH)
}

func (s *CommunionService) saveSheet(u *Upload) (string, error) {
	if s.media == nil {
		return "", fmt.Errorf("sheet uploads are not configured")
	}
	key, err := s.media.Save(u.Filename, u.Data)
	if err != nil {
		return "", fmt.Errorf("save sheet image: %w", err)
	}
	return key, nil
}

func (s *CommunionService) discard(ctx context.Context, key string) {
	if key == "" || s.media == nil {
		return
	}
	if err := s.media.Remove(key); err != nil {
		slog.WarnContext(ctx, "Failed to remove sheet image", "key", key, "error", err)
	}
}

func (s *CommunionService) changed() {
	if s.reports != nil {
		s.reports.Invalidate()
	}
}
