// Package memory is an in-process record store for tests and demos.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"churchclerk/internal/core"
	"churchclerk/internal/records"
)

type Store struct {
	mu           sync.Mutex
	certificates map[string]core.Certificate
	communions   map[string]core.CommunionRecord
	transfers    map[string]core.MemberTransfer
	staff        map[string]core.StaffUser
	activity     []core.Activity
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		certificates: map[string]core.Certificate{},
		communions:   map[string]core.CommunionRecord{},
		transfers:    map[string]core.MemberTransfer{},
		staff:        map[string]core.StaffUser{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateCertificate(_ context.Context, c core.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.certificates[c.ID]; exists {
		return fmt.Errorf("certificate %s already exists", c.ID)
	}
	s.certificates[c.ID] = c
	return nil
}

func (s *Store) GetCertificate(_ context.Context, id string) (core.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certificates[id]
	if !ok {
		return core.Certificate{}, core.ErrNotFound
	}
	return c, nil
}

// UpdateCertificate replaces the record but keeps DateAdded from creation.
func (s *Store) UpdateCertificate(_ context.Context, c core.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.certificates[c.ID]
	if !ok {
		return core.ErrNotFound
	}
	c.DateAdded = old.DateAdded
	s.certificates[c.ID] = c
	return nil
}

func (s *Store) ListCertificates(_ context.Context, f records.CertificateFilter) ([]core.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Certificate
	for _, c := range s.certificates {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b core.Certificate) int {
		if n := b.CeremonyDate.Compare(a.CeremonyDate.Time); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) MarkPickedUp(_ context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed []string
	for _, id := range ids {
		c, ok := s.certificates[id]
		if !ok || c.IsPickedUp {
			continue
		}
		c.IsPickedUp = true
		s.certificates[id] = c
		changed = append(changed, id)
	}
	return changed, nil
}

func (s *Store) RecordReminder(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certificates[id]
	if !ok {
		return core.ErrNotFound
	}
	c.ReminderCount++
	c.LastReminderSent = &at
	s.certificates[id] = c
	return nil
}

func (s *Store) CreateCommunion(_ context.Context, r core.CommunionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.communions[r.ID]; exists {
		return fmt.Errorf("communion record %s already exists", r.ID)
	}
	s.communions[r.ID] = r
	return nil
}

func (s *Store) GetCommunion(_ context.Context, id string) (core.CommunionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.communions[id]
	if !ok {
		return core.CommunionRecord{}, core.ErrNotFound
	}
	return r, nil
}

func (s *Store) UpdateCommunion(_ context.Context, r core.CommunionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.communions[r.ID]; !ok {
		return core.ErrNotFound
	}
	s.communions[r.ID] = r
	return nil
}

func (s *Store) ListCommunions(_ context.Context, f records.CommunionFilter) ([]core.CommunionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CommunionRecord
	for _, r := range s.communions {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b core.CommunionRecord) int {
		if n := b.Date.Compare(a.Date.Time); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) CreateTransfer(_ context.Context, t core.MemberTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transfers[t.ID]; exists {
		return fmt.Errorf("transfer %s already exists", t.ID)
	}
	s.transfers[t.ID] = t
	return nil
}

func (s *Store) GetTransfer(_ context.Context, id string) (core.MemberTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return core.MemberTransfer{}, core.ErrNotFound
	}
	return t, nil
}

// UpdateTransfer replaces the record but keeps DateStarted from creation.
func (s *Store) UpdateTransfer(_ context.Context, t core.MemberTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.transfers[t.ID]
	if !ok {
		return core.ErrNotFound
	}
	t.DateStarted = old.DateStarted
	s.transfers[t.ID] = t
	return nil
}

func (s *Store) ListTransfers(_ context.Context, f records.TransferFilter) ([]core.MemberTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MemberTransfer
	for _, t := range s.transfers {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b core.MemberTransfer) int {
		if n := b.DateStarted.Compare(a.DateStarted); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) AppendActivity(_ context.Context, a core.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = int64(len(s.activity) + 1)
	s.activity = append(s.activity, a)
	return nil
}

func (s *Store) ListActivity(_ context.Context, limit int) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Activity, 0, min(limit, len(s.activity)))
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.activity[i])
	}
	return out, nil
}

func (s *Store) CreateStaff(_ context.Context, u core.StaffUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.staff[u.Username]; exists {
		return core.ErrDuplicateUser
	}
	s.staff[u.Username] = u
	return nil
}

func (s *Store) GetStaffByUsername(_ context.Context, username string) (core.StaffUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.staff[username]
	if !ok {
		return core.StaffUser{}, core.ErrNotFound
	}
	return u, nil
}
