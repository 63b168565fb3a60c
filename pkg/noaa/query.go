package noaa

import (
	"net/url"

	"github.com/spencer-p/springtides/pkg/timetricks"
)

const (
	NOAA_URL = "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter"

	DefaultDatum = "MLLW"
	DefaultUnits = "english"

	application = "springtides"
)

// HighLowQuery asks for the observed extrema at a station on one date. The
// window always runs through the following day because NOAA will not serve
// high_low data for a single day.
type HighLowQuery struct {
	Station Station
	Date    timetricks.DateKey
	// Vertical datum; MLLW if empty.
	Datum string
	// "english" or "metric"; english if empty.
	Units string
}

func (q *HighLowQuery) build() url.Values {
	datum, units := q.Datum, q.Units
	if datum == "" {
		datum = DefaultDatum
	}
	if units == "" {
		units = DefaultUnits
	}

	vals := make(url.Values)
	vals.Add("begin_date", q.Date.String())
	vals.Add("end_date", q.Date.AddDays(1).String())
	vals.Add("station", string(q.Station))
	vals.Add("product", "high_low")
	vals.Add("datum", datum)
	vals.Add("time_zone", "gmt")
	vals.Add("units", units)
	vals.Add("format", "json")
	vals.Add("application", application)
	return vals
}

func (q *HighLowQuery) url(base string) (*url.URL, error) {
	addr, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	addr.RawQuery = q.build().Encode()
	return addr, nil
}
