package util

import (
    "strings"
    "time"
)

var dateLayouts = []string{
    "2006-01-02",
    "2006-01-02 15:04:05",
    time.RFC3339,
    "02-01-2006",
    "02/01/2006",
    "2-1-2006",
    "2/1/2006",
    "02-Jan-2006",
    "Jan-2006",
    "Jan 2006",
    "January 2006",
    "2006-01",
}

// ParseDate parses the textual date forms found in price and weather workbooks.
// Day-first layouts win over month-first ones. The result is truncated to midnight UTC.
func ParseDate(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, false
    }
    for _, layout := range dateLayouts {
        if t, err := time.Parse(layout, s); err == nil {
            return Midnight(t), true
        }
    }
    return time.Time{}, false
}

// Midnight drops the clock part and moves t to UTC.
func Midnight(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t in the ISO day form used by chart payloads.
func FormatDate(t time.Time) string {
    return t.Format("2006-01-02")
}

// FormatDates renders every date with FormatDate.
func FormatDates(ts []time.Time) []string {
    out := make([]string, len(ts))
    for i, t := range ts {
        out[i] = FormatDate(t)
    }
    return out
}
