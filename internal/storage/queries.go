package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Certificate struct {
	ID                string
	FullName          string
	ParentGuardian    string
	PhoneNumber       string
	Email             string
	CertificateType   string
	CeremonyDate      string
	OfficiatingPastor string
	Location          string
	IsPickedUp        bool
	DateAdded         string
	LastReminderSent  sql.NullString
	ReminderCount     int64
}

const certificateColumns = `id, full_name, parent_guardian, phone_number, email, certificate_type,
    ceremony_date, officiating_pastor, location, is_picked_up, date_added, last_reminder_sent, reminder_count`

func scanCertificate(row interface{ Scan(...any) error }) (Certificate, error) {
	var i Certificate
	err := row.Scan(
		&i.ID,
		&i.FullName,
		&i.ParentGuardian,
		&i.PhoneNumber,
		&i.Email,
		&i.CertificateType,
		&i.CeremonyDate,
		&i.OfficiatingPastor,
		&i.Location,
		&i.IsPickedUp,
		&i.DateAdded,
		&i.LastReminderSent,
		&i.ReminderCount,
	)
	return i, err
}

const createCertificate = `INSERT INTO certificates (` + certificateColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCertificate(ctx context.Context, arg Certificate) error {
	_, err := q.db.ExecContext(ctx, createCertificate,
		arg.ID,
		arg.FullName,
		arg.ParentGuardian,
		arg.PhoneNumber,
		arg.Email,
		arg.CertificateType,
		arg.CeremonyDate,
		arg.OfficiatingPastor,
		arg.Location,
		arg.IsPickedUp,
		arg.DateAdded,
		arg.LastReminderSent,
		arg.ReminderCount,
	)
	return err
}

const getCertificate = `SELECT ` + certificateColumns + ` FROM certificates WHERE id = ?`

func (q *Queries) GetCertificate(ctx context.Context, id string) (Certificate, error) {
	return scanCertificate(q.db.QueryRowContext(ctx, getCertificate, id))
}

// date_added is set on insert only.
const updateCertificate = `UPDATE certificates SET
    full_name = ?, parent_guardian = ?, phone_number = ?, email = ?, certificate_type = ?,
    ceremony_date = ?, officiating_pastor = ?, location = ?, is_picked_up = ?,
    last_reminder_sent = ?, reminder_count = ?
WHERE id = ?`

func (q *Queries) UpdateCertificate(ctx context.Context, arg Certificate) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCertificate,
		arg.FullName,
		arg.ParentGuardian,
		arg.PhoneNumber,
		arg.Email,
		arg.CertificateType,
		arg.CeremonyDate,
		arg.OfficiatingPastor,
		arg.Location,
		arg.IsPickedUp,
		arg.LastReminderSent,
		arg.ReminderCount,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ListCertificatesParams struct {
	CertificateType string
	PickedUp        sql.NullBool
	CeremonyFrom    string
	CeremonyTo      string
	Search          string
	// IDs is a JSON array of ids, or empty for no id restriction.
	IDs string
}

const listCertificates = `SELECT ` + certificateColumns + ` FROM certificates
WHERE (?1 = '' OR certificate_type = ?1)
  AND (?2 IS NULL OR is_picked_up = ?2)
  AND (?3 = '' OR ceremony_date >= ?3)
  AND (?4 = '' OR ceremony_date <= ?4)
  AND (?5 = '' OR lower(full_name) LIKE '%' || lower(?5) || '%' OR phone_number LIKE '%' || ?5 || '%')
  AND (?6 = '' OR id IN (SELECT value FROM json_each(?6)))
ORDER BY ceremony_date DESC, id ASC`

func (q *Queries) ListCertificates(ctx context.Context, arg ListCertificatesParams) ([]Certificate, error) {
	rows, err := q.db.QueryContext(ctx, listCertificates,
		arg.CertificateType,
		arg.PickedUp,
		arg.CeremonyFrom,
		arg.CeremonyTo,
		arg.Search,
		arg.IDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Certificate
	for rows.Next() {
		i, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markCertificatePickedUp = `UPDATE certificates SET is_picked_up = 1 WHERE id = ? AND is_picked_up = 0`

func (q *Queries) MarkCertificatePickedUp(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markCertificatePickedUp, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const recordReminder = `UPDATE certificates
SET reminder_count = reminder_count + 1, last_reminder_sent = ?
WHERE id = ?`

func (q *Queries) RecordReminder(ctx context.Context, sentAt string, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, recordReminder, sentAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type CommunionRecord struct {
	ID                string
	Date              string
	ParticipantsCount int64
	SheetImage        string
}

func scanCommunion(row interface{ Scan(...any) error }) (CommunionRecord, error) {
	var i CommunionRecord
	err := row.Scan(&i.ID, &i.Date, &i.ParticipantsCount, &i.SheetImage)
	return i, err
}

const createCommunion = `INSERT INTO communion_records (id, date, participants_count, sheet_image) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateCommunion(ctx context.Context, arg CommunionRecord) error {
	_, err := q.db.ExecContext(ctx, createCommunion, arg.ID, arg.Date, arg.ParticipantsCount, arg.SheetImage)
	return err
}

const getCommunion = `SELECT id, date, participants_count, sheet_image FROM communion_records WHERE id = ?`

func (q *Queries) GetCommunion(ctx context.Context, id string) (CommunionRecord, error) {
	return scanCommunion(q.db.QueryRowContext(ctx, getCommunion, id))
}

const updateCommunion = `UPDATE communion_records SET date = ?, participants_count = ?, sheet_image = ? WHERE id = ?`

func (q *Queries) UpdateCommunion(ctx context.Context, arg CommunionRecord) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCommunion, arg.Date, arg.ParticipantsCount, arg.SheetImage, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listCommunions = `SELECT id, date, participants_count, sheet_image FROM communion_records
WHERE (?1 = '' OR date >= ?1) AND (?2 = '' OR date <= ?2)
ORDER BY date DESC, id ASC`

func (q *Queries) ListCommunions(ctx context.Context, from, to string) ([]CommunionRecord, error) {
	rows, err := q.db.QueryContext(ctx, listCommunions, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CommunionRecord
	for rows.Next() {
		i, err := scanCommunion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type MemberTransfer struct {
	ID             string
	FullName       string
	TransferType   string
	ChurchInvolved string
	Stage          string
	PhoneNumber    string
	Email          string
	DateStarted    string
	DateCompleted  sql.NullString
	LastUpdated    string
}

const transferColumns = `id, full_name, transfer_type, church_involved, stage, phone_number, email,
    date_started, date_completed, last_updated`

func scanTransfer(row interface{ Scan(...any) error }) (MemberTransfer, error) {
	var i MemberTransfer
	err := row.Scan(
		&i.ID,
		&i.FullName,
		&i.TransferType,
		&i.ChurchInvolved,
		&i.Stage,
		&i.PhoneNumber,
		&i.Email,
		&i.DateStarted,
		&i.DateCompleted,
		&i.LastUpdated,
	)
	return i, err
}

const createTransfer = `INSERT INTO member_transfers (` + transferColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransfer(ctx context.Context, arg MemberTransfer) error {
	_, err := q.db.ExecContext(ctx, createTransfer,
		arg.ID,
		arg.FullName,
		arg.TransferType,
		arg.ChurchInvolved,
		arg.Stage,
		arg.PhoneNumber,
		arg.Email,
		arg.DateStarted,
		arg.DateCompleted,
		arg.LastUpdated,
	)
	return err
}

const getTransfer = `SELECT ` + transferColumns + ` FROM member_transfers WHERE id = ?`

func (q *Queries) GetTransfer(ctx context.Context, id string) (MemberTransfer, error) {
	return scanTransfer(q.db.QueryRowContext(ctx, getTransfer, id))
}

// date_started is set on insert only.
const updateTransfer = `UPDATE member_transfers SET
    full_name = ?, transfer_type = ?, church_involved = ?, stage = ?, phone_number = ?,
    email = ?, date_completed = ?, last_updated = ?
WHERE id = ?`

func (q *Queries) UpdateTransfer(ctx context.Context, arg MemberTransfer) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransfer,
		arg.FullName,
		arg.TransferType,
		arg.ChurchInvolved,
		arg.Stage,
		arg.PhoneNumber,
		arg.Email,
		arg.DateCompleted,
		arg.LastUpdated,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ListTransfersParams struct {
	TransferType  string
	Stage         string
	CompletedFrom string
	CompletedTo   string
	Search        string
}

const listTransfers = `SELECT ` + transferColumns + ` FROM member_transfers
WHERE (?1 = '' OR transfer_type = ?1)
  AND (?2 = '' OR stage = ?2)
  AND (?3 = '' OR date_completed >= ?3)
  AND (?4 = '' OR date_completed <= ?4)
  AND (?5 = '' OR lower(full_name) LIKE '%' || lower(?5) || '%' OR phone_number LIKE '%' || ?5 || '%')
ORDER BY date_started DESC, id ASC`

func (q *Queries) ListTransfers(ctx context.Context, arg ListTransfersParams) ([]MemberTransfer, error) {
	rows, err := q.db.QueryContext(ctx, listTransfers,
		arg.TransferType,
		arg.Stage,
		arg.CompletedFrom,
		arg.CompletedTo,
		arg.Search,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MemberTransfer
	for rows.Next() {
		i, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type ActivityLog struct {
	ID         int64
	Kind       string
	RecordID   string
	Detail     string
	Actor      string
	OccurredAt string
}

const appendActivity = `INSERT INTO activity_log (kind, record_id, detail, actor, occurred_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) AppendActivity(ctx context.Context, arg ActivityLog) error {
	_, err := q.db.ExecContext(ctx, appendActivity, arg.Kind, arg.RecordID, arg.Detail, arg.Actor, arg.OccurredAt)
	return err
}

const listActivity = `SELECT id, kind, record_id, detail, actor, occurred_at FROM activity_log
ORDER BY id DESC LIMIT ?`

func (q *Queries) ListActivity(ctx context.Context, limit int64) ([]ActivityLog, error) {
	rows, err := q.db.QueryContext(ctx, listActivity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ActivityLog
	for rows.Next() {
		var i ActivityLog
		if err := rows.Scan(&i.ID, &i.Kind, &i.RecordID, &i.Detail, &i.Actor, &i.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type StaffUser struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    string
}

const createStaffUser = `INSERT INTO staff_users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateStaffUser(ctx context.Context, arg StaffUser) error {
	_, err := q.db.ExecContext(ctx, createStaffUser, arg.ID, arg.Username, arg.PasswordHash, arg.CreatedAt)
	return err
}

const getStaffUserByUsername = `SELECT id, username, password_hash, created_at FROM staff_users WHERE username = ?`

func (q *Queries) GetStaffUserByUsername(ctx context.Context, username string) (StaffUser, error) {
	var i StaffUser
	err := q.db.QueryRowContext(ctx, getStaffUserByUsername, username).Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt)
	return i, err
}
