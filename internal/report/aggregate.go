// Package report turns raw clerk records into period statistics and renders
// them as a printable PDF.
package report

import (
	"time"

	"churchclerk/internal/core"
)

// Aggregate computes the statistical summary for a period. Ceremonies are
// bucketed by month of year, so the same month in different years is merged.
// Months without ceremonies are omitted and the result is ordered January to
// December.
func Aggregate(period core.Period, certs []core.Certificate, transfers []core.MemberTransfer, communions []core.CommunionRecord) core.Summary {
	var baptisms, dedications [13]int
	for _, c := range certs {
		if !period.Contains(c.CeremonyDate) {
			continue
		}
		switch c.Type {
		case core.Baptism:
			baptisms[c.CeremonyDate.Month()]++
		case core.Dedication:
			dedications[c.CeremonyDate.Month()]++
		}
	}

	s := core.Summary{
		Period:      period,
		Baptisms:    monthCounts(baptisms),
		Dedications: monthCounts(dedications),
	}

	for _, t := range transfers {
		if t.Stage != core.StageFinalized || !period.ContainsPtr(t.DateCompleted) {
			continue
		}
		switch t.Type {
		case core.TransferIn:
			s.TransfersIn++
		case core.TransferOut:
			s.TransfersOut++
		}
	}

	for _, r := range communions {
		if period.Contains(r.Date) {
			s.CommunionParticipants += r.ParticipantsCount
		}
	}
	return s
}

func monthCounts(buckets [13]int) []core.MonthCount {
	var out []core.MonthCount
	for m := time.January; m <= time.December; m++ {
		if buckets[m] == 0 {
			continue
		}
		out = append(out, core.MonthCount{Month: m, Name: m.String(), Count: buckets[m]})
	}
	return out
}
