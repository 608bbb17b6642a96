package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthKey identifies a calendar month. The zero value means "no month".
type MonthKey struct {
	Year  int
	Month int // 1-12
}

// MonthOf returns the month containing t in t's location.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonthKey accepts "YYYY-MM" and any longer date form starting with it
// ("YYYY-MM-DD", RFC 3339).
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if len(s) < 7 || s[4] != '-' {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	if len(s) > 7 && s[7] != '-' {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	month, err := strconv.Atoi(s[5:7])
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	k := MonthKey{Year: year, Month: month}
	if err := k.Validate(); err != nil {
		return MonthKey{}, err
	}
	return k, nil
}

func (k MonthKey) Validate() error {
	if k.Month < 1 || k.Month > 12 {
		return ErrInvalidMonth
	}
	if k.Year < 1 {
		return ErrInvalidMonth
	}
	return nil
}

func (k MonthKey) IsZero() bool {
	return k == MonthKey{}
}

// Before reports whether k is an earlier month than o.
func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

func (k MonthKey) String() string {
	if k.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// FirstDay returns the first day of the month as stored in the
// presupuestos.periodo column.
func (k MonthKey) FirstDay() string {
	return fmt.Sprintf("%04d-%02d-01", k.Year, k.Month)
}

// Period returns the inclusive range covering the whole month in loc.
func (k MonthKey) Period(loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, loc)
	last := time.Date(k.Year, time.Month(k.Month)+1, 0, 0, 0, 0, 0, loc)
	return bounded(first, EndOfDay(last))
}

// ReferenceMonth picks the month budgets are matched against for a period:
// the month of its start, else of its end, else of now.
func ReferenceMonth(p Period, now time.Time) MonthKey {
	if p.Start != nil {
		return MonthOf(*p.Start)
	}
	if p.End != nil {
		return MonthOf(*p.End)
	}
	return MonthOf(now)
}
