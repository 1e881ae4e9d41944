package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"churchclerk/internal/core"
	clog "churchclerk/internal/log"
	"churchclerk/internal/media"
	"churchclerk/internal/records"
	"churchclerk/internal/services"
)

type certificateDTO struct {
	ID                string     `json:"id"`
	FullName          string     `json:"full_name"`
	PhoneNumber       string     `json:"phone_number"`
	Email             string     `json:"email,omitempty"`
	CeremonyDate      string     `json:"ceremony_date"`
	Type              string     `json:"type"`
	ParentGuardian    string     `json:"parent_guardian,omitempty"`
	OfficiatingPastor string     `json:"officiating_pastor,omitempty"`
	Location          string     `json:"location,omitempty"`
	IsPickedUp        bool       `json:"is_picked_up"`
	DateAdded         time.Time  `json:"date_added"`
	LastReminderSent  *time.Time `json:"last_reminder_sent"`
	ReminderCount     int        `json:"reminder_count"`
}

func toCertificateDTO(c core.Certificate) certificateDTO {
	return certificateDTO{
		ID:                c.ID,
		FullName:          c.FullName,
		PhoneNumber:       c.PhoneNumber,
		Email:             c.Email,
		CeremonyDate:      c.CeremonyDate.String(),
		Type:              string(c.Type),
		ParentGuardian:    c.ParentGuardian,
		OfficiatingPastor: c.OfficiatingPastor,
		Location:          c.Location,
		IsPickedUp:        c.IsPickedUp,
		DateAdded:         c.DateAdded,
		LastReminderSent:  c.LastReminderSent,
		ReminderCount:     c.ReminderCount,
	}
}

type transferDTO struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	Type           string    `json:"type"`
	ChurchInvolved string    `json:"church_involved"`
	Stage          string    `json:"stage"`
	PhoneNumber    string    `json:"phone_number"`
	Email          string    `json:"email,omitempty"`
	DateStarted    time.Time `json:"date_started"`
	DateCompleted  string    `json:"date_completed,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
}

func toTransferDTO(t core.MemberTransfer) transferDTO {
	dto := transferDTO{
		ID:             t.ID,
		FullName:       t.FullName,
		Type:           string(t.Type),
		ChurchInvolved: t.ChurchInvolved,
		Stage:          string(t.Stage),
		PhoneNumber:    t.PhoneNumber,
		Email:          t.Email,
		DateStarted:    t.DateStarted,
		LastUpdated:    t.LastUpdated,
	}
	if t.DateCompleted != nil {
		dto.DateCompleted = t.DateCompleted.String()
	}
	return dto
}

type communionDTO struct {
	ID                string `json:"id"`
	Date              string `json:"date"`
	ParticipantsCount int    `json:"participants_count"`
	HasSheet          bool   `json:"has_sheet"`
}

func toCommunionDTO(r core.CommunionRecord) communionDTO {
	return communionDTO{
		ID:                r.ID,
		Date:              r.Date.String(),
		ParticipantsCount: r.ParticipantsCount,
		HasSheet:          r.SheetImage != "",
	}
}

type activityDTO struct {
	Kind       string    `json:"kind"`
	RecordID   string    `json:"record_id"`
	Detail     string    `json:"detail,omitempty"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

func mapSlice[T, D any](in []T, f func(T) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

// fail logs unexpected errors and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		s.deps.Logger.ErrorContext(r.Context(), "Admin request failed",
			clog.FieldOperation, op,
			clog.FieldPath, r.URL.Path,
			clog.FieldError, err)
	}
	resp.Write(w)
}

func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return nil, false
	}
	return p, true
}

// Certificates

func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := records.CertificateFilter{
		Type:     core.CertificateType(sanitizeInput(q.Get("type"))),
		PickedUp: OptionalBool(q, "picked_up"),
		Ceremony: ParsePeriod(q),
		Search:   sanitizeInput(q.Get("q")),
	}
	certs, err := s.deps.Certificates.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, clog.OpList, err)
		return
	}
	NewJSONResponse().Data(mapSlice(certs, toCertificateDTO)).Write(w)
}

func certificateFromBody(p *RequestBodyParser) (core.Certificate, error) {
	date, err := p.Date("ceremony_date")
	if err != nil {
		return core.Certificate{}, &core.ValidationError{Fields: map[string]string{"CeremonyDate": err.Error()}}
	}
	return core.Certificate{
		FullName:          p.Get("full_name"),
		PhoneNumber:       p.Get("phone_number"),
		Email:             p.Get("email"),
		CeremonyDate:      date,
		Type:              core.CertificateType(p.Get("type")),
		ParentGuardian:    p.Get("parent_guardian"),
		OfficiatingPastor: p.Get("officiating_pastor"),
		Location:          p.Get("location"),
		IsPickedUp:        p.Bool("is_picked_up"),
	}, nil
}

func (s *Server) handleCreateCertificate(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	c, err := certificateFromBody(p)
	if err == nil {
		c, err = s.deps.Certificates.Create(r.Context(), c)
	}
	if err != nil {
		s.fail(w, r, clog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(toCertificateDTO(c)).Write(w)
}

func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := s.deps.Certificates.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, clog.OpRead, err)
		return
	}
	NewJSONResponse().Data(toCertificateDTO(c)).Write(w)
}

func (s *Server) handleUpdateCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	c, err := certificateFromBody(p)
	if err == nil {
		c.ID = id
		c, err = s.deps.Certificates.Update(r.Context(), c)
	}
	if err != nil {
		s.fail(w, r, clog.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(toCertificateDTO(c)).Write(w)
}

// handleCertificateAction runs a bulk action over the selected ids and
// reports the outcome as a single message.
func (s *Server) handleCertificateAction(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	action := p.Get("action")
	ids := p.Strings("ids")

	msg, err := s.deps.Certificates.RunAction(r.Context(), action, ids)
	if err != nil {
		s.fail(w, r, clog.OpDispatch, err)
		return
	}
	s.deps.Logger.InfoContext(r.Context(), "Certificate action completed",
		"action", action,
		"selected", len(ids),
		"message", msg)
	NewJSONResponse().Message(msg).Write(w)
}

// Transfers

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := records.TransferFilter{
		Type:      core.TransferType(sanitizeInput(q.Get("type"))),
		Stage:     core.TransferStage(sanitizeInput(q.Get("stage"))),
		Completed: ParsePeriod(q),
		Search:    sanitizeInput(q.Get("q")),
	}
	list, err := s.deps.Transfers.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, clog.OpList, err)
		return
	}
	NewJSONResponse().Data(mapSlice(list, toTransferDTO)).Write(w)
}

func transferFromBody(p *RequestBodyParser) (core.MemberTransfer, error) {
	t := core.MemberTransfer{
		FullName:       p.Get("full_name"),
		Type:           core.TransferType(p.Get("type")),
		ChurchInvolved: p.Get("church_involved"),
		Stage:          core.TransferStage(p.Get("stage")),
		PhoneNumber:    p.Get("phone_number"),
		Email:          p.Get("email"),
	}
	if p.Get("date_completed") != "" {
		d, err := p.Date("date_completed")
		if err != nil {
			return core.MemberTransfer{}, &core.ValidationError{Fields: map[string]string{"DateCompleted": err.Error()}}
		}
		t.DateCompleted = &d
	}
	return t, nil
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	t, err := transferFromBody(p)
	if err == nil {
		t, err = s.deps.Transfers.Create(r.Context(), t)
	}
	if err != nil {
		s.fail(w, r, clog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(toTransferDTO(t)).Write(w)
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, err := s.deps.Transfers.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, clog.OpRead, err)
		return
	}
	NewJSONResponse().Data(toTransferDTO(t)).Write(w)
}

func (s *Server) handleUpdateTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	t, err := transferFromBody(p)
	if err == nil {
		t.ID = id
		t, err = s.deps.Transfers.Save(r.Context(), t)
	}
	if err != nil {
		s.fail(w, r, clog.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(toTransferDTO(t)).Write(w)
}

// Communion

func (s *Server) handleListCommunion(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Communion.List(r.Context(), records.CommunionFilter{Period: ParsePeriod(r.URL.Query())})
	if err != nil {
		s.fail(w, r, clog.OpList, err)
		return
	}
	NewJSONResponse().Data(mapSlice(list, toCommunionDTO)).Write(w)
}

// communionFromForm reads a multipart form with date, participants_count
// and an optional sheet_image file.
func communionFromForm(w http.ResponseWriter, r *http.Request) (core.CommunionRecord, *services.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(media.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.CommunionRecord{}, nil, media.ErrTooLarge
		}
		return core.CommunionRecord{}, nil, &core.ValidationError{Fields: map[string]string{"_": "expected multipart form"}}
	}

	verr := &core.ValidationError{Fields: map[string]string{}}
	rec := core.CommunionRecord{}
	if d, err := core.ParseDate(sanitizeInput(r.FormValue("date"))); err != nil {
		verr.Fields["Date"] = "expected YYYY-MM-DD"
	} else {
		rec.Date = d
	}
	if n, err := strconv.Atoi(sanitizeInput(r.FormValue("participants_count"))); err != nil {
		verr.Fields["ParticipantsCount"] = "must be a whole number"
	} else {
		rec.ParticipantsCount = n
	}
	if len(verr.Fields) > 0 {
		return core.CommunionRecord{}, nil, verr
	}

	file, header, err := r.FormFile("sheet_image")
	if errors.Is(err, http.ErrMissingFile) {
		return rec, nil, nil
	}
	if err != nil {
		return core.CommunionRecord{}, nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return core.CommunionRecord{}, nil, err
	}
	return rec, &services.Upload{Filename: header.Filename, Data: data}, nil
}

func (s *Server) handleCreateCommunion(w http.ResponseWriter, r *http.Request) {
	rec, upload, err := communionFromForm(w, r)
	if err == nil {
		rec, err = s.deps.Communion.Create(r.Context(), rec, upload)
	}
	if err != nil {
		s.fail(w, r, clog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(toCommunionDTO(rec)).Write(w)
}

func (s *Server) handleUpdateCommunion(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rec, upload, err := communionFromForm(w, r)
	if err == nil {
		rec.ID = id
		rec, err = s.deps.Communion.Update(r.Context(), rec, upload)
	}
	if err != nil {
		s.fail(w, r, clog.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(toCommunionDTO(rec)).Write(w)
}

const (
	sheetPreviewWidth  = 1200
	sheetPreviewHeight = 1600
)

func (s *Server) handleCommunionSheet(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	img, err := s.deps.Communion.SheetPreview(r.Context(), id, sheetPreviewWidth, sheetPreviewHeight)
	if err != nil {
		s.fail(w, r, clog.OpRead, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	_, _ = w.Write(img)
}

// Activity

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = min(n, maxActivityLimit)
	}
	if s.deps.Activity == nil {
		NewJSONResponse().Data([]activityDTO{}).Write(w)
		return
	}
	entries, err := s.deps.Activity.ListActivity(r.Context(), limit)
	if err != nil {
		s.fail(w, r, clog.OpList, err)
		return
	}
	NewJSONResponse().Data(mapSlice(entries, func(a core.Activity) activityDTO {
		return activityDTO{
			Kind:       string(a.Kind),
			RecordID:   a.RecordID,
			Detail:     a.Detail,
			Actor:      a.Actor,
			OccurredAt: a.OccurredAt,
		}
	})).Write(w)
}
