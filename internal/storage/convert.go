package storage

import (
	"database/sql"
	"fmt"
	"time"

	"churchclerk/internal/core"
)

func certificateRow(c core.Certificate) Certificate {
	row := Certificate{
		ID:                c.ID,
		FullName:          c.FullName,
		ParentGuardian:    c.ParentGuardian,
		PhoneNumber:       c.PhoneNumber,
		Email:             c.Email,
		CertificateType:   string(c.Type),
		CeremonyDate:      c.CeremonyDate.String(),
		OfficiatingPastor: c.OfficiatingPastor,
		Location:          c.Location,
		IsPickedUp:        c.IsPickedUp,
		DateAdded:         c.DateAdded.UTC().Format(timestampLayout),
		ReminderCount:     int64(c.ReminderCount),
	}
	if c.LastReminderSent != nil {
		row.LastReminderSent = sql.NullString{String: c.LastReminderSent.UTC().Format(timestampLayout), Valid: true}
	}
	return row
}

func certificateFromRow(row Certificate) (core.Certificate, error) {
	ceremony, err := core.ParseDate(row.CeremonyDate)
	if err != nil {
		return core.Certificate{}, fmt.Errorf("parse ceremony_date %q: %w", row.CeremonyDate, err)
	}
	added, err := time.Parse(timestampLayout, row.DateAdded)
	if err != nil {
		return core.Certificate{}, fmt.Errorf("parse date_added %q: %w", row.DateAdded, err)
	}
	c := core.Certificate{
		ID:                row.ID,
		FullName:          row.FullName,
		PhoneNumber:       row.PhoneNumber,
		Email:             row.Email,
		CeremonyDate:      ceremony,
		Type:              core.CertificateType(row.CertificateType),
		ParentGuardian:    row.ParentGuardian,
		OfficiatingPastor: row.OfficiatingPastor,
		Location:          row.Location,
		IsPickedUp:        row.IsPickedUp,
		DateAdded:         added,
		ReminderCount:     int(row.ReminderCount),
	}
	if row.LastReminderSent.Valid {
		last, err := time.Parse(timestampLayout, row.LastReminderSent.String)
		if err != nil {
			return core.Certificate{}, fmt.Errorf("parse last_reminder_sent: %w", err)
		}
		c.LastReminderSent = &last
	}
	return c, nil
}

func communionRow(c core.CommunionRecord) CommunionRecord {
	return CommunionRecord{
		ID:                c.ID,
		Date:              c.Date.String(),
		ParticipantsCount: int64(c.ParticipantsCount),
		SheetImage:        c.SheetImage,
	}
}

func communionFromRow(row CommunionRecord) (core.CommunionRecord, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.CommunionRecord{}, fmt.Errorf("parse communion date %q: %w", row.Date, err)
	}
	return core.CommunionRecord{
		ID:                row.ID,
		Date:              d,
		ParticipantsCount: int(row.ParticipantsCount),
		SheetImage:        row.SheetImage,
	}, nil
}

func transferRow(t core.MemberTransfer) MemberTransfer {
	row := MemberTransfer{
		ID:             t.ID,
		FullName:       t.FullName,
		TransferType:   string(t.Type),
		ChurchInvolved: t.ChurchInvolved,
		Stage:          string(t.Stage),
		PhoneNumber:    t.PhoneNumber,
		Email:          t.Email,
		DateStarted:    t.DateStarted.UTC().Format(timestampLayout),
		LastUpdated:    t.LastUpdated.UTC().Format(timestampLayout),
	}
	if t.DateCompleted != nil {
		row.DateCompleted = sql.NullString{String: t.DateCompleted.String(), Valid: true}
	}
	return row
}

func transferFromRow(row MemberTransfer) (core.MemberTransfer, error) {
	started, err := time.Parse(timestampLayout, row.DateStarted)
	if err != nil {
		return core.MemberTransfer{}, fmt.Errorf("parse date_started %q: %w", row.DateStarted, err)
	}
	updated, err := time.Parse(timestampLayout, row.LastUpdated)
	if err != nil {
		return core.MemberTransfer{}, fmt.Errorf("parse last_updated %q: %w", row.LastUpdated, err)
	}
	t := core.MemberTransfer{
		ID:             row.ID,
		FullName:       row.FullName,
		Type:           core.TransferType(row.TransferType),
		ChurchInvolved: row.ChurchInvolved,
		Stage:          core.TransferStage(row.Stage),
		PhoneNumber:    row.PhoneNumber,
		Email:          row.Email,
		DateStarted:    started,
		LastUpdated:    updated,
	}
	if row.DateCompleted.Valid {
		d, err := core.ParseDate(row.DateCompleted.String)
		if err != nil {
			return core.MemberTransfer{}, fmt.Errorf("parse date_completed: %w", err)
		}
		t.DateCompleted = &d
	}
	return t, nil
}
