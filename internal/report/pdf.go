package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"churchclerk/internal/core"
)

const ContentType = "application/pdf"

// Letter is 612x792pt. Layout coordinates below are measured from the
// bottom-left corner and flipped when drawn.
const (
	pageHeight   = 792.0
	centerX      = 300.0
	marginLeft   = 70.0
	ruleRight    = 530.0
	bulletStartY = 620.0
	bulletStep   = 20.0
)

// Document is everything printed on a report page.
type Document struct {
	Org         string
	Summary     core.Summary
	GeneratedAt time.Time
}

// Lines returns the statistical summary lines in print order.
func (d Document) Lines() []string {
	s := d.Summary
	return []string{
		fmt.Sprintf("Total Baptisms: %d", s.TotalBaptisms()),
		fmt.Sprintf("Total Child Dedications: %d", s.TotalDedications()),
		fmt.Sprintf("Incoming Transfers (Finalized): %d", s.TransfersIn),
		fmt.Sprintf("Outgoing Transfers (Finalized): %d", s.TransfersOut),
		fmt.Sprintf("Total Communion Participants: %d", s.CommunionParticipants),
	}
}

// RenderPDF writes a single Letter page. It only prints values already in
// the summary and performs no aggregation of its own.
func RenderPDF(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle(fmt.Sprintf("%s Clerk's Ministry Report", doc.Org), true)
	pdf.SetCreator("churchclerk", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	text := func(x, y float64, s string) {
		pdf.Text(x, pageHeight-y, tr(s))
	}
	centered := func(y float64, s string) {
		text(centerX-pdf.GetStringWidth(tr(s))/2, y, s)
	}

	pdf.SetFont("Helvetica", "B", 18)
	centered(750, strings.ToUpper(doc.Org)+" SDA CHURCH")
	pdf.SetFont("Helvetica", "B", 14)
	centered(730, "CLERK'S MINISTRY REPORT")

	pdf.SetFont("Helvetica", "", 10)
	text(marginLeft, 700, "Report Period: "+doc.Summary.Period.String())
	text(marginLeft, 685, "Generated: "+doc.GeneratedAt.Format(core.DateLayout))
	pdf.Line(marginLeft, pageHeight-680, ruleRight, pageHeight-680)

	pdf.SetFont("Helvetica", "B", 12)
	text(marginLeft, 640, "STATISTICAL SUMMARY")
	pdf.SetFont("Helvetica", "", 12)
	y := bulletStartY
	for _, line := range doc.Lines() {
		text(marginLeft, y, "• "+line)
		y -= bulletStep
	}

	pdf.SetFont("Helvetica", "I", 10)
	text(marginLeft, y-30, "Signed: __________________________ (Church Clerk)")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report pdf: %w", err)
	}
	return nil
}

// Filename names the downloaded report. Bounded periods embed both dates,
// everything else is the full report.
func Filename(period core.Period, org string) string {
	if !period.Bounded() {
		return "Full_Report.pdf"
	}
	return fmt.Sprintf("%s_Report_%s_to_%s.pdf", org, period.Start, period.End)
}
