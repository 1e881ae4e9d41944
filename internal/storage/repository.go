package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"churchclerk/internal/core"
	"churchclerk/internal/records"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ records.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateCertificate(ctx context.Context, c core.Certificate) error {
	if err := r.queries.CreateCertificate(ctx, certificateRow(c)); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	slog.DebugContext(ctx, "Certificate saved to SQLite", "id", c.ID, "type", c.Type)
	return nil
}

func (r *SQLiteRepository) GetCertificate(ctx context.Context, id string) (core.Certificate, error) {
	row, err := r.queries.GetCertificate(ctx, id)
	if err != nil {
		return core.Certificate{}, notFound(err, "get certificate")
	}
	return certificateFromRow(row)
}

func (r *SQLiteRepository) UpdateCertificate(ctx context.Context, c core.Certificate) error {
	n, err := r.queries.UpdateCertificate(ctx, certificateRow(c))
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListCertificates(ctx context.Context, f records.CertificateFilter) ([]core.Certificate, error) {
	params := ListCertificatesParams{
		CertificateType: string(f.Type),
		Search:          strings.TrimSpace(f.Search),
	}
	if f.PickedUp != nil {
		params.PickedUp = sql.NullBool{Bool: *f.PickedUp, Valid: true}
	}
	params.CeremonyFrom, params.CeremonyTo = periodBounds(f.Ceremony)
	if len(f.IDs) > 0 {
		ids, err := json.Marshal(f.IDs)
		if err != nil {
			return nil, fmt.Errorf("encode certificate ids: %w", err)
		}
		params.IDs = string(ids)
	}

	rows, err := r.queries.ListCertificates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	out := make([]core.Certificate, 0, len(rows))
	for _, row := range rows {
		c, err := certificateFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkPickedUp(ctx context.Context, ids []string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	var changed []string
	for _, id := range ids {
		n, err := q.MarkCertificatePickedUp(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("mark certificate %s picked up: %w", id, err)
		}
		if n > 0 {
			changed = append(changed, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return changed, nil
}

func (r *SQLiteRepository) RecordReminder(ctx context.Context, id string, at time.Time) error {
	n, err := r.queries.RecordReminder(ctx, at.UTC().Format(timestampLayout), id)
	if err != nil {
		return fmt.Errorf("record reminder: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateCommunion(ctx context.Context, c core.CommunionRecord) error {
	if err := r.queries.CreateCommunion(ctx, communionRow(c)); err != nil {
		return fmt.Errorf("create communion record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCommunion(ctx context.Context, id string) (core.CommunionRecord, error) {
	row, err := r.queries.GetCommunion(ctx, id)
	if err != nil {
		return core.CommunionRecord{}, notFound(err, "get communion record")
	}
	return communionFromRow(row)
}

func (r *SQLiteRepository) UpdateCommunion(ctx context.Context, c core.CommunionRecord) error {
	n, err := r.queries.UpdateCommunion(ctx, communionRow(c))
	if err != nil {
		return fmt.Errorf("update communion record: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListCommunions(ctx context.Context, f records.CommunionFilter) ([]core.CommunionRecord, error) {
	from, to := periodBounds(f.Period)
	rows, err := r.queries.ListCommunions(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list communion records: %w", err)
	}
	out := make([]core.CommunionRecord, 0, len(rows))
	for _, row := range rows {
		c, err := communionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTransfer(ctx context.Context, t core.MemberTransfer) error {
	if err := r.queries.CreateTransfer(ctx, transferRow(t)); err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransfer(ctx context.Context, id string) (core.MemberTransfer, error) {
	row, err := r.queries.GetTransfer(ctx, id)
	if err != nil {
		return core.MemberTransfer{}, notFound(err, "get transfer")
	}
	return transferFromRow(row)
}

func (r *SQLiteRepository) UpdateTransfer(ctx context.Context, t core.MemberTransfer) error {
	n, err := r.queries.UpdateTransfer(ctx, transferRow(t))
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListTransfers(ctx context.Context, f records.TransferFilter) ([]core.MemberTransfer, error) {
	params := ListTransfersParams{
		TransferType: string(f.Type),
		Stage:        string(f.Stage),
		Search:       strings.TrimSpace(f.Search),
	}
	params.CompletedFrom, params.CompletedTo = periodBounds(f.Completed)

	rows, err := r.queries.ListTransfers(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	out := make([]core.MemberTransfer, 0, len(rows))
	for _, row := range rows {
		t, err := transferFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) AppendActivity(ctx context.Context, a core.Activity) error {
	err := r.queries.AppendActivity(ctx, ActivityLog{
		Kind:       string(a.Kind),
		RecordID:   a.RecordID,
		Detail:     a.Detail,
		Actor:      a.Actor,
		OccurredAt: a.OccurredAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListActivity(ctx context.Context, limit int) ([]core.Activity, error) {
	rows, err := r.queries.ListActivity(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	out := make([]core.Activity, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(timestampLayout, row.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("parse activity time %q: %w", row.OccurredAt, err)
		}
		out = append(out, core.Activity{
			ID:         row.ID,
			Kind:       core.ActivityKind(row.Kind),
			RecordID:   row.RecordID,
			Detail:     row.Detail,
			Actor:      row.Actor,
			OccurredAt: at,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) CreateStaff(ctx context.Context, u core.StaffUser) error {
	err := r.queries.CreateStaffUser(ctx, StaffUser{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.ErrDuplicateUser
		}
		return fmt.Errorf("create staff user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetStaffByUsername(ctx context.Context, username string) (core.StaffUser, error) {
	row, err := r.queries.GetStaffUserByUsername(ctx, username)
	if err != nil {
		return core.StaffUser{}, notFound(err, "get staff user")
	}
	created, err := time.Parse(timestampLayout, row.CreatedAt)
	if err != nil {
		return core.StaffUser{}, fmt.Errorf("parse created_at: %w", err)
	}
	return core.StaffUser{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    created,
	}, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func periodBounds(p core.Period) (string, string) {
	if !p.Bounded() {
		return "", ""
	}
	return p.Start.String(), p.End.String()
}
