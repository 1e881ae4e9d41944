package core

// Period is an optional inclusive date range. A nil bound on either side
// means the period is unbounded and matches every date ("All Time").
type Period struct {
	Start *Date
	End   *Date
}

// NewPeriod parses two YYYY-MM-DD strings. Missing or malformed input on
// either side yields the unbounded period; it never fails.
func NewPeriod(start, end string) Period {
	s, err := ParseDate(start)
	if err != nil {
		return Period{}
	}
	e, err := ParseDate(end)
	if err != nil {
		return Period{}
	}
	return Period{Start: &s, End: &e}
}

// Between builds a bounded period from two dates.
func Between(start, end Date) Period {
	return Period{Start: &start, End: &end}
}

func (p Period) Bounded() bool {
	return p.Start != nil && p.End != nil
}

// Contains reports whether d falls inside the period, both ends inclusive.
func (p Period) Contains(d Date) bool {
	if !p.Bounded() {
		return true
	}
	return !d.BeforeDay(*p.Start) && !d.AfterDay(*p.End)
}

// ContainsPtr is Contains for optional dates; a nil date is only matched by
// the unbounded period.
func (p Period) ContainsPtr(d *Date) bool {
	if d == nil {
		return !p.Bounded()
	}
	return p.Contains(*d)
}

// String renders the period the way reports print it.
func (p Period) String() string {
	if !p.Bounded() {
		return "All Time"
	}
	return p.Start.String() + " to " + p.End.String()
}

// Key is a stable cache key for the period.
func (p Period) Key() string {
	if !p.Bounded() {
		return "all"
	}
	return p.Start.String() + ".." + p.End.String()
}
