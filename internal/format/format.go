// Package format renders dates, sizes and counts for display.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UnknownDate is shown when a timestamp is missing.
const UnknownDate = "Unknown date"

const displayLayout = "02 Jan 2006, 15:04"

// Layouts the API is known to emit. Python's isoformat() has no zone suffix.
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an API timestamp.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date formats an API timestamp; unparsable input is returned as-is.
func Date(s string) string {
	if strings.TrimSpace(s) == "" {
		return UnknownDate
	}
	t, ok := ParseTimestamp(s)
	if !ok {
		return s
	}
	return t.Format(displayLayout)
}

// Time formats a local timestamp.
func Time(t time.Time) string {
	if t.IsZero() {
		return UnknownDate
	}
	return t.Format(displayLayout)
}

// SizeMB renders a byte count in mebibytes with two decimals.
func SizeMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
}

// Rows renders a row count, "N/A" when unknown.
func Rows(n int) string {
	if n <= 0 {
		return "N/A"
	}
	return strconv.Itoa(n)
}
