package noaa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Observation holds a single observed tide extremum.
type Observation struct {
	// GMT time of the observation, "2006-01-02 15:04"
	Time string `json:"t"`
	// Water level as reported. Kept unparsed so a single bad entry does not
	// spoil the rest of the response.
	Value Level `json:"v"`
	// HH, H, L or LL
	Type Tide `json:"ty"`
	// Data quality flags
	Flags string `json:"f,omitempty"`
}

// Verify the custom types can be unmarshaled
var _ json.Unmarshaler = new(Level)
var _ json.Unmarshaler = new(Tide)
var _ json.Unmarshaler = new(Observation)

// Observations is a time series of Observation.
type Observations []Observation

// Response is the data type returned by the NOAA API.
type Response struct {
	Metadata *Metadata    `json:"metadata,omitempty"`
	Data     Observations `json:"data"`
	Error    *APIError    `json:"error,omitempty"`

	// Raw is the undecoded body, for auditing.
	Raw json.RawMessage `json:"-"`
}

// Metadata describes the station that answered a query.
type Metadata struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Lat  string `json:"lat"`
	Lon  string `json:"lon"`
}

// Coordinates parses the station's position.
func (m *Metadata) Coordinates() (lat, lon float64, err error) {
	if m == nil {
		return 0, 0, fmt.Errorf("no station metadata")
	}
	if lat, err = strconv.ParseFloat(m.Lat, 64); err != nil {
		return 0, 0, fmt.Errorf("station latitude %q: %w", m.Lat, err)
	}
	if lon, err = strconv.ParseFloat(m.Lon, 64); err != nil {
		return 0, 0, fmt.Errorf("station longitude %q: %w", m.Lon, err)
	}
	return lat, lon, nil
}

// APIError is reported in the body of an otherwise successful response, for
// example when a station has no data for the requested window.
type APIError struct {
	Message string `json:"message"`
}

// Level is a water level in the units of the query. NOAA encodes it as a
// string; bare numbers are accepted too.
type Level string

func (l *Level) UnmarshalJSON(buf []byte) error {
	buf = bytes.TrimSpace(buf)
	if bytes.Equal(buf, []byte("null")) {
		*l = ""
		return nil
	}
	if len(buf) > 0 && buf[0] == '"' {
		var s string
		if err := json.Unmarshal(buf, &s); err != nil {
			return fmt.Errorf("water level %q not string: %w", buf, err)
		}
		*l = Level(s)
		return nil
	}
	*l = Level(buf)
	return nil
}

// Float parses the level. NaN and infinities are not levels.
func (l Level) Float() (float64, error) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(string(l)), 64)
	if err != nil {
		return 0, fmt.Errorf("water level %q not a float: %w", string(l), err)
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, fmt.Errorf("water level %q not finite", string(l))
	}
	return parsed, nil
}

// Tide is the classification NOAA gives an extremum.
type Tide string

const (
	HigherHigh Tide = "HH"
	High       Tide = "H"
	Low        Tide = "L"
	LowerLow   Tide = "LL"
)

func (t Tide) Valid() bool {
	switch t {
	case HigherHigh, High, Low, LowerLow:
		return true
	}
	return false
}

// UnmarshalJSON trims the padding NOAA puts on single letter labels ("H ").
// Unknown labels are kept as they are.
func (t *Tide) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return fmt.Errorf("tide %q not a string: %w", buf, err)
	}
	*t = Tide(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

func (t Tide) String() string {
	if t == "" {
		return "unlabelled"
	}
	return string(t)
}

// UnmarshalJSON accepts the label under "ty", as the high_low product sends
// it, or under "type".
func (o *Observation) UnmarshalJSON(buf []byte) error {
	type plain Observation
	var aux struct {
		plain
		AltType *Tide `json:"type"`
	}
	if err := json.Unmarshal(buf, &aux); err != nil {
		return err
	}
	*o = Observation(aux.plain)
	if o.Type == "" && aux.AltType != nil {
		o.Type = *aux.AltType
	}
	return nil
}

func (o Observation) String() string {
	return fmt.Sprintf("{t: %s, v: %s, ty: %s}", o.Time, o.Value, o.Type)
}
