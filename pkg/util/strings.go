package util

import (
    "math"
    "strconv"
    "strings"
)

// ParseFloat parses a numeric spreadsheet cell. Blank and placeholder cells
// ("NA", "-", "n/a") return false. Thousands separators are tolerated.
func ParseFloat(s string) (float64, bool) {
    s = strings.TrimSpace(s)
    switch strings.ToLower(s) {
    case "", "na", "n/a", "nan", "-", "--", "null":
        return math.NaN(), false
    }
    s = strings.ReplaceAll(s, ",", "")
    v, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return math.NaN(), false
    }
    return v, true
}

// NormalizeHeader trims and collapses whitespace in a column header.
func NormalizeHeader(s string) string {
    return strings.Join(strings.Fields(s), " ")
}
