package payout

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned when a value matches none of the accepted
// request timestamp layouts.
var ErrInvalidTimestamp = errors.New("payout: invalid timestamp")

// timestampLayouts are tried in order. Day-first forms come first because
// that is how the weekly text-response exports write them.
var timestampLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a request timestamp. Values without an offset are
// read in loc (UTC when nil); RFC 3339 values keep their own offset, so
// Policy.Period sees the date exactly as written.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}
