// Package payout maps request timestamps onto weekly holiday-pay payout
// periods. A period is identified by the calendar date it begins on and
// carries the date the payment for that week is issued.
//
// Dates are represented as time.Time values at midnight UTC so that they
// compare, hash and persist as plain calendar dates. The calendar date is the
// one the timestamp was written with; a timestamp carrying an offset is not
// shifted into another zone first.
package payout

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE may name any IANA zone
)

// DateLayout is the canonical textual form of a period date.
const DateLayout = "2006-01-02"

// Period is a weekly payout window.
type Period struct {
	BeginningOn time.Time `json:"beginning_on"`
	PaysOn      time.Time `json:"pays_on"`
}

// Key returns the beginning date formatted with DateLayout.
func (p Period) Key() string { return FormatDate(p.BeginningOn) }

// Policy holds the rules used to derive a Period from a timestamp.
type Policy struct {
	// WeekStart is the weekday every period begins on.
	WeekStart time.Weekday
	// PaysOnOffsetDays is the number of days after BeginningOn that the
	// period is paid.
	PaysOnOffsetDays int
	// Location is the zone offset-less timestamps are read in. Nil means UTC.
	Location *time.Location
}

// DefaultPolicy returns Monday-based weeks paid on the Friday of the
// following week, with offset-less timestamps read as UTC.
func DefaultPolicy() Policy {
	return Policy{WeekStart: time.Monday, PaysOnOffsetDays: 11, Location: time.UTC}
}

// Period returns the payout period enclosing the calendar date of t, taken
// in t's own location.
func (p Policy) Period(t time.Time) Period {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	back := (int(day.Weekday()) - int(p.WeekStart) + 7) % 7
	begin := day.AddDate(0, 0, -back)
	return Period{
		BeginningOn: begin,
		PaysOn:      begin.AddDate(0, 0, p.PaysOnOffsetDays),
	}
}

// FormatDate renders a period date as YYYY-MM-DD.
func FormatDate(d time.Time) string { return d.UTC().Format(DateLayout) }

// ParseWeekday accepts full or three-letter English weekday names,
// case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("payout: unknown weekday %q", s)
}
