// Package records defines the storage ports for the clerk's records.
package records

import (
	"context"
	"slices"
	"strings"
	"time"

	"churchclerk/internal/core"
)

// Ports for outbound storage adapters.
type (
	CertificateStore interface {
		CreateCertificate(ctx context.Context, c core.Certificate) error
		GetCertificate(ctx context.Context, id string) (core.Certificate, error)
		UpdateCertificate(ctx context.Context, c core.Certificate) error
		// ListCertificates returns matches ordered by ceremony date, newest first.
		ListCertificates(ctx context.Context, f CertificateFilter) ([]core.Certificate, error)
		// MarkPickedUp flags the given certificates as collected and returns
		// the ids that changed. Unknown and already collected ids are left out.
		MarkPickedUp(ctx context.Context, ids []string) ([]string, error)
		// RecordReminder bumps reminder_count and sets last_reminder_sent.
		RecordReminder(ctx context.Context, id string, at time.Time) error
	}

	CommunionStore interface {
		CreateCommunion(ctx context.Context, r core.CommunionRecord) error
		GetCommunion(ctx context.Context, id string) (core.CommunionRecord, error)
		UpdateCommunion(ctx context.Context, r core.CommunionRecord) error
		ListCommunions(ctx context.Context, f CommunionFilter) ([]core.CommunionRecord, error)
	}

	// TransferStore persists transfers as given. Callers apply
	// core.MemberTransfer.ApplyStageInvariant before writing.
	TransferStore interface {
		CreateTransfer(ctx context.Context, t core.MemberTransfer) error
		GetTransfer(ctx context.Context, id string) (core.MemberTransfer, error)
		UpdateTransfer(ctx context.Context, t core.MemberTransfer) error
		ListTransfers(ctx context.Context, f TransferFilter) ([]core.MemberTransfer, error)
	}

	ActivityStore interface {
		AppendActivity(ctx context.Context, a core.Activity) error
		// ListActivity returns the newest entries first.
		ListActivity(ctx context.Context, limit int) ([]core.Activity, error)
	}

	StaffStore interface {
		CreateStaff(ctx context.Context, u core.StaffUser) error
		GetStaffByUsername(ctx context.Context, username string) (core.StaffUser, error)
	}

	// Store is the full record store used by the server and CLI.
	Store interface {
		CertificateStore
		CommunionStore
		TransferStore
		ActivityStore
		StaffStore
		Ping(ctx context.Context) error
		Close() error
	}
)

type (
	CertificateFilter struct {
		Type     core.CertificateType
		PickedUp *bool
		Ceremony core.Period
		// Search matches name or phone, case-insensitive substring.
		Search string
		IDs    []string
	}

	TransferFilter struct {
		Type      core.TransferType
		Stage     core.TransferStage
		Completed core.Period
		Search    string
	}

	CommunionFilter struct {
		Period core.Period
	}
)

func (f CertificateFilter) Match(c core.Certificate) bool {
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.PickedUp != nil && c.IsPickedUp != *f.PickedUp {
		return false
	}
	if !f.Ceremony.Contains(c.CeremonyDate) {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, c.ID) {
		return false
	}
	return matchesSearch(f.Search, c.FullName, c.PhoneNumber)
}

func (f TransferFilter) Match(t core.MemberTransfer) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Stage != "" && t.Stage != f.Stage {
		return false
	}
	if !f.Completed.ContainsPtr(t.DateCompleted) {
		return false
	}
	return matchesSearch(f.Search, t.FullName, t.PhoneNumber)
}

func (f CommunionFilter) Match(r core.CommunionRecord) bool {
	return f.Period.Contains(r.Date)
}

func matchesSearch(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
