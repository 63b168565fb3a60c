// Package spring finds the dates in a range on which spring tides fall, that
// is the days when the Moon is new or full.
package spring

import (
	"fmt"

	"github.com/spencer-p/springtides/pkg/lunar"
	"github.com/spencer-p/springtides/pkg/timetricks"
)

const (
	// NewMoonThreshold is the phase below which a date counts as new moon.
	NewMoonThreshold = 0.01
	// FullMoonThreshold is the phase above which a date counts as full moon.
	FullMoonThreshold = 0.99
	// SkipDays is how far past a qualifying date the scan jumps, on top of the
	// usual one day step, so one lunar event is reported once.
	SkipDays = 5
)

// Oracle reports the lunar phase for a date.
type Oracle interface {
	PhaseAt(date timetricks.DateKey) (float64, error)
}

// OracleFunc adapts a function to an Oracle.
type OracleFunc func(date timetricks.DateKey) (float64, error)

func (f OracleFunc) PhaseAt(date timetricks.DateKey) (float64, error) {
	return f(date)
}

// InvalidRangeError is returned when a scan starts after it ends.
type InvalidRangeError struct {
	Start, End timetricks.DateKey
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s", e.Start, e.End)
}

// Scanner walks date ranges looking for spring tides. The zero value uses the
// lunar package's default observer.
type Scanner struct {
	Oracle Oracle
}

// Scan returns the spring tide dates between start and end inclusive using
// the default Scanner.
func Scan(start, end timetricks.DateKey) ([]timetricks.DateKey, error) {
	return Scanner{}.Scan(start, end)
}

// ScanStrings is like Scan with both ends given as YYYYMMDD.
func ScanStrings(start, end string) ([]timetricks.DateKey, error) {
	s, err := timetricks.ParseDateKey(start)
	if err != nil {
		return nil, err
	}
	e, err := timetricks.ParseDateKey(end)
	if err != nil {
		return nil, err
	}
	return Scan(s, e)
}

// Qualifies reports whether a phase is close enough to new or full moon.
func Qualifies(phase float64) bool {
	return phase < NewMoonThreshold || phase > FullMoonThreshold
}

// Scan returns the spring tide dates between start and end inclusive, in
// increasing order.
func (s Scanner) Scan(start, end timetricks.DateKey) ([]timetricks.DateKey, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if err := end.Validate(); err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}

	oracle := s.Oracle
	if oracle == nil {
		oracle = lunar.Default
	}

	var dates []timetricks.DateKey
	for d := start; !d.After(end); d = d.AddDays(1) {
		phase, err := oracle.PhaseAt(d)
		if err != nil {
			return nil, fmt.Errorf("phase at %s: %w", d, err)
		}
		if Qualifies(phase) {
			dates = append(dates, d)
			d = d.AddDays(SkipDays)
		}
	}
	return dates, nil
}
