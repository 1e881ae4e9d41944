package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"churchclerk/internal/core"
	clog "churchclerk/internal/log"
	"churchclerk/internal/services"
)

type reportsPage struct {
	pageData
	Period        string
	StartDate     string
	EndDate       string
	Summary       core.Summary
	Lines         []string
	ExportEnabled bool
	Notice        string
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	p := ParsePeriod(r.URL.Query())
	doc, err := s.deps.Reports.Document(r.Context(), p)
	if err != nil {
		s.deps.Logger.WithComponent(clog.ComponentReport).ErrorContext(r.Context(), "Failed to build report",
			clog.FieldPeriod, p.String(),
			clog.FieldError, err)
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}

	data := reportsPage{
		pageData:      pageData{Org: s.deps.Org, Title: "Reports", SignedIn: true},
		Period:        p.String(),
		Summary:       doc.Summary,
		Lines:         doc.Lines(),
		ExportEnabled: s.deps.Reports.ExportEnabled(),
		Notice:        sanitizeInput(r.URL.Query().Get("notice")),
	}
	if p.Bounded() {
		data.StartDate = p.Start.String()
		data.EndDate = p.End.String()
	}
	s.render(w, r, http.StatusOK, "reports.html", data)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	p := ParsePeriod(r.URL.Query())

	var buf bytes.Buffer
	filename, err := s.deps.Reports.WritePDF(r.Context(), &buf, p)
	if err != nil {
		s.deps.Logger.WithComponent(clog.ComponentReport).ErrorContext(r.Context(), "Failed to render report PDF",
			clog.FieldPeriod, p.String(),
			clog.FieldError, err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	p := core.NewPeriod(parser.Get("start_date"), parser.Get("end_date"))

	ref, err := s.deps.Reports.Export(r.Context(), p)
	switch {
	case errors.Is(err, services.ErrExportDisabled):
		ErrorResponse(http.StatusConflict, err.Error()).Write(w)
		return
	case err != nil:
		s.deps.Logger.WithComponent(clog.ComponentSheets).ErrorContext(r.Context(), "Report export failed",
			clog.FieldOperation, clog.OpExport,
			clog.FieldPeriod, p.String(),
			clog.FieldError, err)
		ErrorResponse(http.StatusBadGateway, "export failed").Write(w)
		return
	}

	NewJSONResponse().
		Message(fmt.Sprintf("Report for %s exported.", p.String())).
		Data(map[string]string{"range": ref}).
		Write(w)
}
