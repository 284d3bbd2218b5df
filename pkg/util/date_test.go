package util

import (
    "math"
    "testing"
    "time"
)

func TestParseDateISO(t *testing.T) {
    got, ok := ParseDate("2024-10-31")
    if !ok {
        t.Fatalf("expected ok")
    }
    if !got.Equal(time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseDateDayFirst(t *testing.T) {
    got, ok := ParseDate("01-02-2012")
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Month() != time.February || got.Day() != 1 {
        t.Fatalf("expected 1 Feb 2012, got %v", got)
    }
}

func TestParseDateMonthName(t *testing.T) {
    got, ok := ParseDate("Mar-2015")
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Year() != 2015 || got.Month() != time.March || got.Day() != 1 {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseDateTruncatesClock(t *testing.T) {
    got, ok := ParseDate("2020-05-01 13:45:00")
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Hour() != 0 || got.Minute() != 0 {
        t.Fatalf("expected midnight, got %v", got)
    }
}

func TestParseFloat(t *testing.T) {
    if v, ok := ParseFloat(" 4,350.5 "); !ok || v != 4350.5 {
        t.Fatalf("unexpected %v %v", v, ok)
    }
    for _, s := range []string{"", "NA", "-", "abc"} {
        v, ok := ParseFloat(s)
        if ok || !math.IsNaN(v) {
            t.Fatalf("%q: expected NaN, got %v", s, v)
        }
    }
}
