package core

import "time"

// MonthCount is the number of ceremonies in one calendar month, years merged.
type MonthCount struct {
	Month time.Month
	Name  string
	Count int
}

// Summary is the statistical overview of one reporting period.
type Summary struct {
	Period                Period
	Baptisms              []MonthCount
	Dedications           []MonthCount
	TransfersIn           int
	TransfersOut          int
	CommunionParticipants int
}

func (s Summary) TotalBaptisms() int { return sumCounts(s.Baptisms) }

func (s Summary) TotalDedications() int { return sumCounts(s.Dedications) }

func sumCounts(months []MonthCount) int {
	total := 0
	for _, m := range months {
		total += m.Count
	}
	return total
}
