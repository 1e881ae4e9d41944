package core

import (
	"errors"
	"time"
)

const DateLayout = "2006-01-02"

const (
	Baptism    CertificateType = "BAPTISM"
	Dedication CertificateType = "DEDICATION"
)

const (
	TransferIn  TransferType = "IN"
	TransferOut TransferType = "OUT"
)

const (
	StageProcessing    TransferStage = "PROCESSING"
	StageFirstReading  TransferStage = "FIRST_READING"
	StageSecondReading TransferStage = "SECOND_READING"
	StageFinalized     TransferStage = "FINALIZED"
)

type (
	CertificateType string
	TransferType    string
	TransferStage   string

	// Date is a calendar day. The time-of-day is always midnight UTC.
	Date struct {
		time.Time
	}

	Certificate struct {
		ID                string
		FullName          string          `validate:"required,max=255"`
		PhoneNumber       string          `validate:"required,max=20"`
		Email             string          `validate:"omitempty,email,max=254"`
		CeremonyDate      Date
		Type              CertificateType `validate:"required,oneof=BAPTISM DEDICATION"`
		ParentGuardian    string          `validate:"required_if=Type DEDICATION,max=255"`
		OfficiatingPastor string          `validate:"max=255"`
		Location          string          `validate:"max=255"`
		IsPickedUp        bool
		DateAdded         time.Time
		LastReminderSent  *time.Time
		ReminderCount     int `validate:"gte=0"`
	}

	CommunionRecord struct {
		ID                string
		Date              Date
		ParticipantsCount int `validate:"gte=0"`
		SheetImage        string
	}

	MemberTransfer struct {
		ID             string
		FullName       string        `validate:"required,max=255"`
		Type           TransferType  `validate:"required,oneof=IN OUT"`
		ChurchInvolved string        `validate:"required,max=255"`
		Stage          TransferStage `validate:"required,oneof=PROCESSING FIRST_READING SECOND_READING FINALIZED"`
		PhoneNumber    string        `validate:"required,max=20"`
		Email          string        `validate:"omitempty,email,max=254"`
		DateStarted    time.Time
		DateCompleted  *Date
		LastUpdated    time.Time
	}

	StaffUser struct {
		ID           string
		Username     string `validate:"required,alphanum,min=3,max=64"`
		PasswordHash string `validate:"required"`
		CreatedAt    time.Time
	}
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrZeroDate      = errors.New("date cannot be zero")
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrDuplicateUser = errors.New("username already exists")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// ordinal orders dates by calendar day regardless of time-of-day or zone.
func (d Date) ordinal() int {
	y, m, day := d.Date()
	return y*10000 + int(m)*100 + day
}

func (d Date) BeforeDay(o Date) bool { return d.ordinal() < o.ordinal() }
func (d Date) AfterDay(o Date) bool  { return d.ordinal() > o.ordinal() }

func (t CertificateType) Valid() bool { return t == Baptism || t == Dedication }

func (t CertificateType) Label() string {
	switch t {
	case Baptism:
		return "Baptism"
	case Dedication:
		return "Child Dedication"
	}
	return string(t)
}

func (t TransferType) Valid() bool { return t == TransferIn || t == TransferOut }

func (s TransferStage) Valid() bool {
	switch s {
	case StageProcessing, StageFirstReading, StageSecondReading, StageFinalized:
		return true
	}
	return false
}

func (s TransferStage) Label() string {
	switch s {
	case StageProcessing:
		return "Processing"
	case StageFirstReading:
		return "First Reading"
	case StageSecondReading:
		return "Second Reading"
	case StageFinalized:
		return "Finalized"
	}
	return string(s)
}
