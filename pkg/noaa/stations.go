package noaa

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Station is a CO-OPS station identifier.
type Station string

const (
	TheBattery Station = "8518750"
	SantaCruz  Station = "9413745"

	// DefaultStation is used when a requested station is not known.
	DefaultStation = TheBattery

	stationIDLen = 7
)

// InvalidStationError reports a malformed station identifier.
type InvalidStationError struct {
	Input string
}

func (e *InvalidStationError) Error() string {
	return fmt.Sprintf("invalid station id %q: want %d digits", e.Input, stationIDLen)
}

// ParseStation checks that s looks like a station identifier.
func ParseStation(s string) (Station, error) {
	s = strings.TrimSpace(s)
	if len(s) != stationIDLen {
		return "", &InvalidStationError{Input: s}
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return "", &InvalidStationError{Input: s}
		}
	}
	return Station(s), nil
}

// StationSet is the set of stations a deployment accepts. An empty set
// accepts every well formed identifier.
type StationSet map[Station]struct{}

// LoadStationSet reads one station id per line. Blank lines and lines
// starting with '#' are skipped.
func LoadStationSet(r io.Reader) (StationSet, error) {
	set := make(StationSet)
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		station, err := ParseStation(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		set[station] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// Contains reports whether s is accepted.
func (set StationSet) Contains(s Station) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[s]
	return ok
}

// Resolve validates id and falls back to DefaultStation if the set does not
// know it. fellBack tells the caller a substitution happened.
func (set StationSet) Resolve(id string) (station Station, fellBack bool, err error) {
	station, err = ParseStation(id)
	if err != nil {
		return "", false, err
	}
	if !set.Contains(station) {
		return DefaultStation, true, nil
	}
	return station, false, nil
}

// Sorted lists the set in order.
func (set StationSet) Sorted() []Station {
	out := make([]Station, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
