// Package calendar builds the month grid and caches month data per session.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar month. The zero value is not valid; use NewMonth or
// Current.
type Month struct {
	Year  int
	Month time.Month
}

var ErrInvalidMonth = errors.New("invalid month")

// NewMonth validates year in [1970, 9999] and month in [1, 12].
func NewMonth(year, month int) (Month, error) {
	if year < 1970 || year > 9999 || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: %d-%d", ErrInvalidMonth, year, month)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// ParseMonth reads year and month query values; empty values default to the
// month containing now.
func ParseMonth(year, month string, now time.Time) (Month, error) {
	cur := Current(now)
	if strings.TrimSpace(year) == "" && strings.TrimSpace(month) == "" {
		return cur, nil
	}
	y, m := cur.Year, int(cur.Month)
	var err error
	if s := strings.TrimSpace(year); s != "" {
		if y, err = strconv.Atoi(s); err != nil {
			return Month{}, fmt.Errorf("%w: year %q", ErrInvalidMonth, year)
		}
	}
	if s := strings.TrimSpace(month); s != "" {
		if m, err = strconv.Atoi(s); err != nil {
			return Month{}, fmt.Errorf("%w: month %q", ErrInvalidMonth, month)
		}
	}
	return NewMonth(y, m)
}

func Current(now time.Time) Month {
	return Month{Year: now.Year(), Month: now.Month()}
}

// Shift moves by delta months, rolling the year over as needed.
func (m Month) Shift(delta int) Month {
	t := m.first().AddDate(0, delta, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) first() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days is the number of days in the month.
func (m Month) Days() int {
	return m.first().AddDate(0, 1, -1).Day()
}

// FirstWeekdayOffset is the number of blank cells before day 1 in a
// Monday-first week.
func (m Month) FirstWeekdayOffset() int {
	return (int(m.first().Weekday()) + 6) % 7
}

// Title is "January 2025".
func (m Month) Title() string {
	return m.Month.String() + " " + strconv.Itoa(m.Year)
}

// Key is "2025-01".
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Date formats day d of the month as YYYY-MM-DD.
func (m Month) Date(d int) string {
	return fmt.Sprintf("%04d-%02d-%02d", m.Year, int(m.Month), d)
}

// Contains reports whether t falls in the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}
