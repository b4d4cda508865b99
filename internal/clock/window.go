// Package clock holds the pure date arithmetic behind reminders and course
// filtering. Nothing here reads the wall clock; callers pass "now" in.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyTimestamp is returned by ParseTimestamp for blank input.
var ErrEmptyTimestamp = errors.New("empty timestamp")

// RemainingMinutes returns the whole minutes from now until deadline, floored
// toward negative infinity. A negative value means the deadline has passed.
func RemainingMinutes(deadline, now time.Time) int {
	d := deadline.Sub(now)
	m := d / time.Minute
	if d%time.Minute < 0 {
		m--
	}
	return int(m)
}

// WithinReminderWindow reports whether a reminder may fire: the deadline is
// still ahead by at least one whole minute and at most windowMinutes away.
// Deadlines at or before now never qualify.
func WithinReminderWindow(deadline, now time.Time, windowMinutes int) bool {
	remaining := RemainingMinutes(deadline, now)
	return remaining > 0 && remaining <= windowMinutes
}

// IsRecentCourse reports whether a course created at created falls within the
// last monthsLimit months relative to now.
func IsRecentCourse(created, now time.Time, monthsLimit int) bool {
	limit := now.AddDate(0, -monthsLimit, 0)
	return !created.Before(limit)
}

// timestampLayouts are tried in order. The offset-less layouts cover the
// portal's usual "2025-02-14T23:59:00" form.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a portal timestamp. Values without an offset are
// interpreted in loc (UTC when loc is nil).
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrEmptyTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
