package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"churchclerk/internal/activity"
	"churchclerk/internal/cache"
	"churchclerk/internal/core"
	"churchclerk/internal/metrics"
	"churchclerk/internal/records"
	"churchclerk/internal/report"
)

var ErrExportDisabled = errors.New("google sheets export is not configured")

// SummaryExporter is implemented by the Google Sheets client.
type SummaryExporter interface {
	AppendSummary(ctx context.Context, generatedAt time.Time, p core.Period, s core.Summary) (string, error)
}

// ReportSources are the stores a report reads from.
type ReportSources interface {
	records.CertificateStore
	records.TransferStore
	records.CommunionStore
}

// ReportService builds period summaries and renders them. Summaries are
// cached per period until a write invalidates them.
type ReportService struct {
	src      ReportSources
	cache    cache.Cache[core.Summary]
	group    singleflight.Group
	gen      atomic.Uint64
	genMu    sync.Mutex
	exporter SummaryExporter
	events   *activity.Emitter
	metrics  *metrics.Metrics
	org      string
	loc      *time.Location
	now      func() time.Time
}

type ReportOptions struct {
	Org      string
	Location *time.Location
	Cache    cache.Cache[core.Summary]
	Exporter SummaryExporter
	Events   *activity.Emitter
	Metrics  *metrics.Metrics
}

func NewReportService(src ReportSources, opts ReportOptions) *ReportService {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	c := opts.Cache
	if c == nil {
		c = cache.NewLRUCache[core.Summary](64, 5*time.Minute)
	}
	return &ReportService{
		src:      src,
		cache:    c,
		exporter: opts.Exporter,
		events:   opts.Events,
		metrics:  opts.Metrics,
		org:      opts.Org,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *ReportService) Org() string { return s.org }

// ExportEnabled reports whether a spreadsheet exporter is configured.
func (s *ReportService) ExportEnabled() bool { return s.exporter != nil }

// Invalidate drops all cached summaries. Aggregations already in flight
// are not cached once it has run.
func (s *ReportService) Invalidate() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gen.Add(1)
	s.cache.Purge()
}

func (s *ReportService) Summary(ctx context.Context, p core.Period) (core.Summary, error) {
	key := p.Key()
	if sum, ok := s.cache.Get(key); ok {
		return sum, nil
	}

	gen := s.gen.Load()
	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10)+"/"+key, func() (any, error) {
		sum, err := s.aggregate(ctx, p)
		if err != nil {
			return core.Summary{}, err
		}
		s.genMu.Lock()
		if s.gen.Load() == gen {
			s.cache.Set(key, sum)
		}
		s.genMu.Unlock()
		return sum, nil
	})
	if err != nil {
		return core.Summary{}, err
	}
	return v.(core.Summary), nil
}

func (s *ReportService) aggregate(ctx context.Context, p core.Period) (core.Summary, error) {
	certs, err := s.src.ListCertificates(ctx, records.CertificateFilter{Ceremony: p})
	if err != nil {
		return core.Summary{}, fmt.Errorf("list certificates: %w", err)
	}
	transfers, err := s.src.ListTransfers(ctx, records.TransferFilter{Stage: core.StageFinalized, Completed: p})
	if err != nil {
		return core.Summary{}, fmt.Errorf("list transfers: %w", err)
	}
	communions, err := s.src.ListCommunions(ctx, records.CommunionFilter{Period: p})
	if err != nil {
		return core.Summary{}, fmt.Errorf("list communion records: %w", err)
	}
	return report.Aggregate(p, certs, transfers, communions), nil
}

func (s *ReportService) Document(ctx context.Context, p core.Period) (report.Document, error) {
	sum, err := s.Summary(ctx, p)
	if err != nil {
		return report.Document{}, err
	}
	return report.Document{Org: s.org, Summary: sum, GeneratedAt: s.now().In(s.loc)}, nil
}

// WritePDF renders the period report and returns the download filename.
func (s *ReportService) WritePDF(ctx context.Context, w io.Writer, p core.Period) (string, error) {
	doc, err := s.Document(ctx, p)
	if err != nil {
		return "", err
	}
	if err := report.RenderPDF(w, doc); err != nil {
		return "", fmt.Errorf("render pdf: %w", err)
	}
	s.metrics.ObserveReport("pdf")
	s.events.Emit(ctx, core.ActivityReportGenerated, p.Key(), "pdf")
	return report.Filename(p, s.org), nil
}

// Export appends the period summary to the configured spreadsheet.
func (s *ReportService) Export(ctx context.Context, p core.Period) (string, error) {
	if s.exporter == nil {
		return "", ErrExportDisabled
	}
	sum, err := s.Summary(ctx, p)
	if err != nil {
		return "", err
	}
	ref, err := s.exporter.AppendSummary(ctx, s.now().In(s.loc), p, sum)
	if err != nil {
		return "", fmt.Errorf("export summary: %w", err)
	}
	s.metrics.ObserveReport("sheets")
	s.events.Emit(ctx, core.ActivityReportGenerated, p.Key(), "sheets "+ref)
	return ref, nil
}
