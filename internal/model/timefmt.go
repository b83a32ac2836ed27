package model

import (
	"errors"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04:05"
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var ErrInvalidDate = errors.New("invalid date")

// Layouts tried in order by ParseTime. The last one is how the spreadsheet renders
// USER_ENTERED dates.
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DateLayout,
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// ParseTime parses the timestamp and date formats seen in stored rows and requests.
// Values without a zone are read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ParseOptionalTime returns nil for an empty string.
func ParseOptionalTime(s string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseTime(s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseDate normalizes any accepted input to midnight of its calendar day in loc.
func ParseDate(s string, loc *time.Location) (*time.Time, error) {
	t, err := ParseOptionalTime(s, loc)
	if err != nil || t == nil {
		return t, err
	}
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return &d, nil
}

// SameDay compares calendar days, reading a in b's location.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FormatTimestamp renders t as UTC with milliseconds, or "" for nil.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// FormatDate renders the calendar day of t, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// JoinCreated rebuilds a creation instant from its stored halves: date is the
// UTC calendar date and clock the wall time in loc. The local day can sit one
// either side of the UTC date, so the candidate whose UTC date matches wins.
// Without a clock the result is UTC midnight of date.
func JoinCreated(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseTime(date, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	y, m, day := d.Date()
	hms, err := time.Parse(ClockLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, offset := range []int{0, -1, 1} {
		t := time.Date(y, m, day+offset, hms.Hour(), hms.Minute(), hms.Second(), 0, loc)
		if uy, um, ud := t.UTC().Date(); uy == y && um == m && ud == day {
			return t, nil
		}
	}
	return time.Date(y, m, day, hms.Hour(), hms.Minute(), hms.Second(), 0, loc), nil
}
