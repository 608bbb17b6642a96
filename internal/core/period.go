package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Selector names a period filter.
type Selector string

const (
	Last7Days Selector = "last7days"
	ThisMonth Selector = "this_month"
	LastMonth Selector = "last_month"
	Custom    Selector = "custom"
)

// ParseSelector maps query values onto a Selector. Unknown values are
// returned unchanged so ResolvePeriod treats them as unbounded.
func ParseSelector(s string) Selector {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "7days", "last7days", "last_7_days":
		return Last7Days
	case "thismonth", "this_month":
		return ThisMonth
	case "lastmonth", "last_month":
		return LastMonth
	case "custom":
		return Custom
	}
	return Selector(s)
}

// Period is an inclusive instant range. A nil bound is open on that side.
type Period struct {
	Start *time.Time
	End   *time.Time
}

// ResolvePeriod maps a selector onto a concrete range relative to now, in
// now's location. Explicit bounds are only read for Custom.
func ResolvePeriod(sel Selector, now time.Time, start, end *time.Time) Period {
	switch sel {
	case Last7Days:
		return bounded(StartOfDay(now.AddDate(0, 0, -6)), EndOfDay(now))
	case ThisMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return bounded(first, EndOfDay(now))
	case LastMonth:
		first := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		// day 0 of the current month is the last day of the previous one
		last := time.Date(now.Year(), now.Month(), 0, 0, 0, 0, 0, now.Location())
		return bounded(first, EndOfDay(last))
	case Custom:
		var p Period
		if start != nil {
			s := StartOfDay(*start)
			p.Start = &s
		}
		if end != nil {
			e := EndOfDay(*end)
			p.End = &e
		}
		return p
	}
	return Period{}
}

func bounded(start, end time.Time) Period {
	return Period{Start: &start, End: &end}
}

// Contains reports whether t falls inside the period, bounds included.
func (p Period) Contains(t time.Time) bool {
	if p.Start != nil && t.Before(*p.Start) {
		return false
	}
	if p.End != nil && t.After(*p.End) {
		return false
	}
	return true
}

// Key returns a stable cache key for the period.
func (p Period) Key() string {
	var b strings.Builder
	if p.Start != nil {
		b.WriteString(strconv.FormatInt(p.Start.UnixMilli(), 10))
	}
	b.WriteByte('~')
	if p.End != nil {
		b.WriteString(strconv.FormatInt(p.End.UnixMilli(), 10))
	}
	return b.String()
}

func (p Period) String() string {
	format := func(t *time.Time) string {
		if t == nil {
			return "open"
		}
		return t.Format(time.RFC3339)
	}
	return fmt.Sprintf("[%s, %s]", format(p.Start), format(p.End))
}

// StartOfDay returns the first instant of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last millisecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
