package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"churchclerk/internal/core"
	"churchclerk/internal/records"
)

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	certs := []core.Certificate{
		{ID: "a", FullName: "Alice Njeri", PhoneNumber: "0711", Type: core.Baptism, CeremonyDate: core.NewDate(2024, 1, 5)},
		{ID: "b", FullName: "Brian Otieno", PhoneNumber: "0722", Type: core.Baptism, CeremonyDate: core.NewDate(2024, 3, 9), IsPickedUp: true},
		{ID: "c", FullName: "Baby Chebet", PhoneNumber: "0733", Type: core.Dedication, ParentGuardian: "Ruth", CeremonyDate: core.NewDate(2024, 2, 2)},
	}
	for _, c := range certs {
		if err := s.CreateCertificate(ctx, c); err != nil {
			t.Fatalf("create %s: %v", c.ID, err)
		}
	}
}

func TestListCertificatesFiltersAndOrder(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()
	notPicked := false

	tests := []struct {
		name   string
		filter records.CertificateFilter
		want   []string
	}{
		{name: "all newest first", want: []string{"b", "c", "a"}},
		{name: "by type", filter: records.CertificateFilter{Type: core.Baptism}, want: []string{"b", "a"}},
		{name: "pending pickup", filter: records.CertificateFilter{PickedUp: &notPicked}, want: []string{"c", "a"}},
		{name: "ceremony range", filter: records.CertificateFilter{Ceremony: core.NewPeriod("2024-01-01", "2024-02-28")}, want: []string{"c", "a"}},
		{name: "search phone", filter: records.CertificateFilter{Search: "0722"}, want: []string{"b"}},
		{name: "search name case insensitive", filter: records.CertificateFilter{Search: "chebet"}, want: []string{"c"}},
		{name: "ids", filter: records.CertificateFilter{IDs: []string{"a", "c"}}, want: []string{"c", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListCertificates(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Fatalf("position %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMarkPickedUpReturnsChangedIDs(t *testing.T) {
	s := New()
	seed(t, s)
	changed, err := s.MarkPickedUp(context.Background(), []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if len(changed) != 1 || changed[0] != "a" {
		t.Fatalf("changed = %v, want [a]", changed)
	}
	c, _ := s.GetCertificate(context.Background(), "a")
	if !c.IsPickedUp {
		t.Fatal("certificate a should be picked up")
	}
}

func TestRecordReminder(t *testing.T) {
	s := New()
	seed(t, s)
	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if err := s.RecordReminder(context.Background(), "a", at); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	c, _ := s.GetCertificate(context.Background(), "a")
	if c.ReminderCount != 2 || c.LastReminderSent == nil || !c.LastReminderSent.Equal(at) {
		t.Fatalf("unexpected bookkeeping: count=%d last=%v", c.ReminderCount, c.LastReminderSent)
	}
	if err := s.RecordReminder(context.Background(), "nope", at); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateKeepsCreationStamps(t *testing.T) {
	s := New()
	ctx := context.Background()
	added := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	c := core.Certificate{ID: "x", FullName: "X", PhoneNumber: "1", Type: core.Baptism, CeremonyDate: core.NewDate(2024, 1, 1), DateAdded: added}
	if err := s.CreateCertificate(ctx, c); err != nil {
		t.Fatal(err)
	}
	c.DateAdded = added.Add(48 * time.Hour)
	c.FullName = "Y"
	if err := s.UpdateCertificate(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetCertificate(ctx, "x")
	if !got.DateAdded.Equal(added) || got.FullName != "Y" {
		t.Fatalf("got %+v", got)
	}
}

func TestActivityNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, k := range []core.ActivityKind{core.ActivityPickedUp, core.ActivityReminderSent, core.ActivityStageChanged} {
		if err := s.AppendActivity(ctx, core.Activity{Kind: k}); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := s.ListActivity(ctx, 2)
	if len(got) != 2 || got[0].Kind != core.ActivityStageChanged || got[1].Kind != core.ActivityReminderSent {
		t.Fatalf("unexpected activity order: %+v", got)
	}
}

func TestStaffDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := core.StaffUser{ID: "1", Username: "clerk", PasswordHash: "h"}
	if err := s.CreateStaff(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateStaff(ctx, u); !errors.Is(err, core.ErrDuplicateUser) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}
