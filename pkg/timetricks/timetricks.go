package timetricks

import (
	"fmt"
	"time"
)

const (
	dayFormat     = "20060102"
	secondsPerDay = 24 * 60 * 60
)

// DateKey is a calendar date with no clock component. Its canonical
// serialization is YYYYMMDD. DateKeys are compared as UTC calendar dates.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// InvalidDateError reports a date that is malformed or does not exist on the
// calendar.
type InvalidDateError struct {
	Input  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

// ParseDateKey reads a YYYYMMDD string.
func ParseDateKey(s string) (DateKey, error) {
	if len(s) != len(dayFormat) {
		return DateKey{}, &InvalidDateError{Input: s, Reason: "want 8 digits in YYYYMMDD form"}
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return DateKey{}, &InvalidDateError{Input: s, Reason: "want 8 digits in YYYYMMDD form"}
		}
	}
	t, err := time.ParseInLocation(dayFormat, s, time.UTC)
	if err != nil {
		return DateKey{}, &InvalidDateError{Input: s, Reason: err.Error()}
	}
	return DateKeyOf(t), nil
}

// DateKeyOf returns the calendar date of t in t's own location.
func DateKeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{Year: y, Month: m, Day: d}
}

// Validate returns an *InvalidDateError if the fields of k do not name a real
// calendar date.
func (k DateKey) Validate() error {
	if k.Year < 1 || k.Year > 9999 {
		return &InvalidDateError{Input: k.raw(), Reason: "year out of range"}
	}
	if DateKeyOf(k.Time()) != k {
		return &InvalidDateError{Input: k.raw(), Reason: "no such calendar date"}
	}
	return nil
}

// raw formats the fields without normalizing them, for error messages.
func (k DateKey) raw() string {
	return fmt.Sprintf("%04d%02d%02d", k.Year, int(k.Month), k.Day)
}

// Time returns midnight UTC at the start of the date.
func (k DateKey) Time() time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
}

// At returns the given UTC hour on the date.
func (k DateKey) At(hour int) time.Time {
	return k.Time().Add(time.Duration(hour) * time.Hour)
}

// AddDays moves the date by n calendar days.
func (k DateKey) AddDays(n int) DateKey {
	return DateKeyOf(k.Time().AddDate(0, 0, n))
}

// DaysUntil counts calendar days from k to other. It is negative when other
// comes first.
func (k DateKey) DaysUntil(other DateKey) int {
	return int((other.Time().Unix() - k.Time().Unix()) / secondsPerDay)
}

// Before reports whether k is an earlier day than other.
func (k DateKey) Before(other DateKey) bool { return k.Time().Before(other.Time()) }

// After reports whether k is a later day than other.
func (k DateKey) After(other DateKey) bool { return k.Time().After(other.Time()) }

// String formats k as YYYYMMDD.
func (k DateKey) String() string {
	return k.Time().Format(dayFormat)
}

// MarshalText encodes k the way String does.
func (k DateKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *DateKey) UnmarshalText(buf []byte) error {
	parsed, err := ParseDateKey(string(buf))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
