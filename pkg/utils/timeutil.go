package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used in queries and file names.
const DateLayout = "2006-01-02"

// FormatDate formats t as YYYY-MM-DD in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// LookbackRange returns the inclusive [now-days, now] calendar range.
func LookbackRange(days int, now time.Time) (from, to time.Time) {
	return now.AddDate(0, 0, -days), now
}

// TruncateToDay returns midnight of t's calendar day in t's own location.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NaiveTime drops the zone of t while keeping its wall clock. The result
// is expressed in UTC so that it renders without a meaningful offset.
func NaiveTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// timestampLayouts are the ISO-8601 variants accepted by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTimestamp parses an ISO-8601 timestamp, keeping the offset it carries.
// Strings without an offset are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatStamp formats t as a compact, file-name-safe timestamp.
func FormatStamp(t time.Time) string {
	return t.Format("20060102T150405")
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFileName replaces runs of characters that are unsafe in file names
// with a single underscore.
func SafeFileName(s string) string {
	s = unsafeFileChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "query"
	}
	return s
}
