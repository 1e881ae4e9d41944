package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"churchclerk/internal/activity"
	"churchclerk/internal/auth"
	"churchclerk/internal/core"
	"churchclerk/internal/media"
	"churchclerk/internal/middleware/trace"
	"churchclerk/internal/notify/notifytest"
	"churchclerk/internal/records/memory"
	"churchclerk/internal/reminder"
	"churchclerk/internal/services"
)

type harness struct {
	srv     *Server
	store   *memory.Store
	gateway *notifytest.Recorder
	cookie  *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	gw := notifytest.NewRecorder()
	events := activity.NewEmitter(activity.NewStoreRecorder(store), nil)

	reports := services.NewReportService(store, services.ReportOptions{Org: "Newlife", Events: events})
	mediaStore, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("media.NewStore() error = %v", err)
	}
	dispatcher := reminder.NewDispatcher(gw, store, events, nil, "Newlife")

	mgr := auth.NewManager(store, strings.Repeat("k", 32), time.Hour, false)
	if err := mgr.EnsureStaff(ctx, "clerk", "password123"); err != nil {
		t.Fatalf("EnsureStaff() error = %v", err)
	}
	token, err := mgr.Issue("clerk")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	srv, err := NewServer(":0", Deps{
		Org:          "Newlife",
		Certificates: services.NewCertificateService(store, dispatcher, events, reports),
		Transfers:    services.NewTransferService(store, events, reports, time.UTC),
		Communion:    services.NewCommunionService(store, mediaStore, events, reports),
		Reports:      reports,
		Activity:     store,
		Auth:         mgr,
		Ready:        store.Ping,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &harness{
		srv:     srv,
		store:   store,
		gateway: gw,
		cookie:  &http.Cookie{Name: auth.CookieName, Value: token},
	}
}

func (h *harness) do(req *http.Request, signedIn bool) *httptest.ResponseRecorder {
	if signedIn {
		req.AddCookie(h.cookie)
	}
	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (h *harness) json(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, true)
}

type envelope struct {
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return env
}

func TestIndexAndHealth(t *testing.T) {
	h := newHarness(t)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/", nil), false)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Welcome to the Newlife") {
		t.Errorf("index body missing heading")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("security headers not applied")
	}
	if rr.Header().Get(trace.HeaderRequestID) == "" {
		t.Errorf("request id header not set")
	}

	for _, path := range []string{"/healthz", "/readyz", "/static/style.css"} {
		rr := h.do(httptest.NewRequest(http.MethodGet, path, nil), false)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
}

func TestReadyReportsFailure(t *testing.T) {
	h := newHarness(t)
	h.srv.deps.Ready = func(context.Context) error { return errors.New("db down") }

	rr := h.do(httptest.NewRequest(http.MethodGet, "/readyz", nil), false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rr.Code)
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/.env", nil), false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestReportsRequireSession(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/reports?start_date=2025-01-01&end_date=2025-06-30", nil)
	req.Header.Set("Accept", "text/html")
	rr := h.do(req, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); !strings.HasPrefix(loc, "/login?next=") {
		t.Errorf("Location = %q", loc)
	}

	rr = h.do(httptest.NewRequest(http.MethodGet, "/reports/pdf", nil), false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("pdf status = %d, want 401", rr.Code)
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return h.do(req, false)
	}

	rr := post(url.Values{"username": {"clerk"}, "password": {"wrong-password"}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid username or password") {
		t.Errorf("bad login body missing error")
	}

	rr = post(url.Values{"username": {"clerk"}, "password": {"password123"}, "next": {"//evil.example"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/reports" {
		t.Errorf("Location = %q, want /reports", loc)
	}
	var found bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Errorf("session cookie not set")
	}

	rr = h.do(httptest.NewRequest(http.MethodPost, "/logout", nil), true)
	if rr.Code != http.StatusSeeOther {
		t.Errorf("logout status = %d", rr.Code)
	}
}

func seedReportData(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	certs := []core.Certificate{
		{ID: "b1", FullName: "A", PhoneNumber: "0711", CeremonyDate: core.NewDate(2025, 1, 5), Type: core.Baptism},
		{ID: "b2", FullName: "B", PhoneNumber: "0712", CeremonyDate: core.NewDate(2025, 3, 9), Type: core.Baptism},
		{ID: "d1", FullName: "C", PhoneNumber: "0713", CeremonyDate: core.NewDate(2025, 3, 9), Type: core.Dedication, ParentGuardian: "P"},
		{ID: "old", FullName: "D", PhoneNumber: "0714", CeremonyDate: core.NewDate(2023, 3, 9), Type: core.Baptism},
	}
	for _, c := range certs {
		if err := h.store.CreateCertificate(ctx, c); err != nil {
			t.Fatalf("seed certificate: %v", err)
		}
	}
	done := core.NewDate(2025, 2, 1)
	if err := h.store.CreateTransfer(ctx, core.MemberTransfer{
		ID: "t1", FullName: "E", Type: core.TransferIn, ChurchInvolved: "Grace", Stage: core.StageFinalized,
		PhoneNumber: "0715", DateCompleted: &done,
	}); err != nil {
		t.Fatalf("seed transfer: %v", err)
	}
	if err := h.store.CreateCommunion(ctx, core.CommunionRecord{ID: "c1", Date: core.NewDate(2025, 4, 6), ParticipantsCount: 120}); err != nil {
		t.Fatalf("seed communion: %v", err)
	}
}

func TestReportsPage(t *testing.T) {
	h := newHarness(t)
	seedReportData(t, h)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/reports?start_date=2025-01-01&end_date=2025-12-31", nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Report Period: 2025-01-01 to 2025-12-31",
		"Total Baptisms: 2",
		"Total Child Dedications: 1",
		"Incoming Transfers (Finalized): 1",
		"Total Communion Participants: 120",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}

	rr = h.do(httptest.NewRequest(http.MethodGet, "/reports?start_date=bogus", nil), true)
	if !strings.Contains(rr.Body.String(), "Report Period: All Time") || !strings.Contains(rr.Body.String(), "Total Baptisms: 3") {
		t.Errorf("malformed period should fall back to all time")
	}
}

func TestReportPDF(t *testing.T) {
	h := newHarness(t)
	seedReportData(t, h)

	tests := []struct {
		query    string
		filename string
	}{
		{"?start_date=2025-01-01&end_date=2025-12-31", "Newlife_Report_2025-01-01_to_2025-12-31.pdf"},
		{"", "Full_Report.pdf"},
	}
	for _, tt := range tests {
		rr := h.do(httptest.NewRequest(http.MethodGet, "/reports/pdf"+tt.query, nil), true)
		if rr.Code != http.StatusOK {
			t.Fatalf("%q status = %d", tt.query, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("Content-Type = %q", ct)
		}
		if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, tt.filename) || !strings.HasPrefix(cd, "attachment") {
			t.Errorf("Content-Disposition = %q, want attachment %s", cd, tt.filename)
		}
		if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
			t.Errorf("body is not a PDF")
		}
	}

	acts, _ := h.store.ListActivity(context.Background(), 10)
	if len(acts) != 2 || acts[0].Kind != core.ActivityReportGenerated || acts[0].Actor != "clerk" {
		t.Errorf("activity = %+v", acts)
	}
}

func TestReportExportDisabled(t *testing.T) {
	h := newHarness(t)
	rr := h.json(t, http.MethodPost, "/reports/export", map[string]string{"start_date": "2025-01-01", "end_date": "2025-01-31"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
}

func TestCertificateEndpoints(t *testing.T) {
	h := newHarness(t)

	rr := h.json(t, http.MethodPost, "/admin/certificates", map[string]any{
		"full_name":     "Jane Doe",
		"phone_number":  "0712345678",
		"ceremony_date": "2025-02-02",
		"type":          "DEDICATION",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create without guardian status = %d, want 422", rr.Code)
	}
	if _, ok := decode(t, rr).Fields["ParentGuardian"]; !ok {
		t.Errorf("fields missing ParentGuardian: %s", rr.Body.String())
	}

	rr = h.json(t, http.MethodPost, "/admin/certificates", map[string]any{
		"full_name":     "Jane Doe",
		"phone_number":  "0712345678",
		"ceremony_date": "2025-02-02",
		"type":          "BAPTISM",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}
	var created certificateDTO
	if err := json.Unmarshal(decode(t, rr).Data, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.ReminderCount != 0 {
		t.Fatalf("created = %+v", created)
	}

	rr = h.json(t, http.MethodGet, "/admin/certificates/"+created.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	rr = h.json(t, http.MethodGet, "/admin/certificates/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get missing status = %d, want 404", rr.Code)
	}

	rr = h.json(t, http.MethodPost, "/admin/certificates/actions", map[string]any{
		"action": "send_sms",
		"ids":    []string{created.ID},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("action status = %d: %s", rr.Code, rr.Body.String())
	}
	if msg := decode(t, rr).Message; msg != "Sent 1 SMS reminder." {
		t.Errorf("message = %q", msg)
	}
	if len(h.gateway.Messages()) != 1 {
		t.Errorf("gateway messages = %d, want 1", len(h.gateway.Messages()))
	}

	rr = h.json(t, http.MethodPost, "/admin/certificates/actions", map[string]any{"action": "shred", "ids": []string{created.ID}})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown action status = %d, want 400", rr.Code)
	}

	rr = h.json(t, http.MethodPut, "/admin/certificates/"+created.ID, map[string]any{
		"full_name":     "Jane A. Doe",
		"phone_number":  "0712345678",
		"ceremony_date": "2025-02-02",
		"type":          "BAPTISM",
		"is_picked_up":  true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}
	var updated certificateDTO
	_ = json.Unmarshal(decode(t, rr).Data, &updated)
	if !updated.IsPickedUp || updated.ReminderCount != 1 {
		t.Errorf("updated = %+v, want picked up with reminder count 1", updated)
	}

	rr = h.json(t, http.MethodGet, "/admin/certificates?picked_up=false", nil)
	var pending []certificateDTO
	_ = json.Unmarshal(decode(t, rr).Data, &pending)
	if len(pending) != 0 {
		t.Errorf("pending = %+v, want none", pending)
	}
}

func TestAdminRequiresSession(t *testing.T) {
	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/admin/certificates", nil), false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestTransferEndpoints(t *testing.T) {
	h := newHarness(t)

	rr := h.json(t, http.MethodPost, "/admin/transfers", map[string]any{
		"full_name":       "John Roe",
		"type":            "OUT",
		"church_involved": "Grace Chapel",
		"phone_number":    "0799999999",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}
	var tr transferDTO
	_ = json.Unmarshal(decode(t, rr).Data, &tr)
	if tr.Stage != string(core.StageProcessing) || tr.DateCompleted != "" {
		t.Fatalf("created = %+v", tr)
	}

	rr = h.json(t, http.MethodPut, "/admin/transfers/"+tr.ID, map[string]any{
		"full_name":       "John Roe",
		"type":            "OUT",
		"church_involved": "Grace Chapel",
		"phone_number":    "0799999999",
		"stage":           "FINALIZED",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}
	_ = json.Unmarshal(decode(t, rr).Data, &tr)
	if tr.DateCompleted == "" {
		t.Errorf("finalized transfer has no completion date")
	}

	rr = h.json(t, http.MethodGet, "/admin/transfers?stage=FINALIZED", nil)
	var list []transferDTO
	_ = json.Unmarshal(decode(t, rr).Data, &list)
	if len(list) != 1 {
		t.Errorf("list = %+v", list)
	}

	rr = h.json(t, http.MethodPost, "/admin/transfers", map[string]any{"full_name": "X", "date_completed": "01/02/2025"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date status = %d, want 422", rr.Code)
	}
}

func sheetForm(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if withImage {
		fw, err := mw.CreateFormFile("sheet_image", "sheet.png")
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(fw, image.NewRGBA(image.Rect(0, 0, 40, 60))); err != nil {
			t.Fatal(err)
		}
	}
	_ = mw.Close()
	return &body, mw.FormDataContentType()
}

func TestCommunionEndpoints(t *testing.T) {
	h := newHarness(t)

	body, ct := sheetForm(t, map[string]string{"date": "2025-04-06", "participants_count": "85"}, true)
	req := httptest.NewRequest(http.MethodPost, "/admin/communion", body)
	req.Header.Set("Content-Type", ct)
	rr := h.do(req, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}
	var rec communionDTO
	_ = json.Unmarshal(decode(t, rr).Data, &rec)
	if !rec.HasSheet || rec.ParticipantsCount != 85 {
		t.Fatalf("created = %+v", rec)
	}

	rr = h.do(httptest.NewRequest(http.MethodGet, "/admin/communion/"+rec.ID+"/sheet", nil), true)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("sheet status = %d type = %q", rr.Code, rr.Header().Get("Content-Type"))
	}

	body, ct = sheetForm(t, map[string]string{"date": "2025-04-06", "participants_count": "90"}, false)
	req = httptest.NewRequest(http.MethodPut, "/admin/communion/"+rec.ID, body)
	req.Header.Set("Content-Type", ct)
	rr = h.do(req, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}
	_ = json.Unmarshal(decode(t, rr).Data, &rec)
	if !rec.HasSheet || rec.ParticipantsCount != 90 {
		t.Errorf("updated = %+v, want sheet kept", rec)
	}

	body, ct = sheetForm(t, map[string]string{"date": "April", "participants_count": "-"}, false)
	req = httptest.NewRequest(http.MethodPost, "/admin/communion", body)
	req.Header.Set("Content-Type", ct)
	rr = h.do(req, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid form status = %d, want 422", rr.Code)
	}
	fields := decode(t, rr).Fields
	if fields["Date"] == "" || fields["ParticipantsCount"] == "" {
		t.Errorf("fields = %v", fields)
	}

	rr = h.json(t, http.MethodGet, "/admin/activity?limit=5", nil)
	var acts []activityDTO
	_ = json.Unmarshal(decode(t, rr).Data, &acts)
	if len(acts) != 1 || acts[0].Kind != string(core.ActivityCommunionRecorded) || acts[0].Actor != "clerk" {
		t.Errorf("activity = %+v", acts)
	}
}
