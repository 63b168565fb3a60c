// Package report renders a springtide.Result for people: a CSV table for
// spreadsheets and a plain text summary for terminals.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/spencer-p/springtides/pkg/springtide"
	"github.com/spencer-p/springtides/pkg/sunset"
)

// DefaultFilename is where the CLI writes the CSV report.
const DefaultFilename = "Spring_High_Data.csv"

const clockFormat = "15:04"

func valueHeader(datum string) string {
	return fmt.Sprintf("HH Tide Values (%s)", datum)
}

func level(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// WriteCSV writes one row per spring tide date, a blank row, then the median
// and average. Dates without a level have an empty value cell. When the
// station's location is known, sunrise and sunset (UTC) columns are added.
func WriteCSV(w io.Writer, res *springtide.Result) error {
	cw := csv.NewWriter(w)
	daylight := res.Place != nil

	header := []string{"Date", valueHeader(res.Datum)}
	if daylight {
		header = append(header, "Sunrise (UTC)", "Sunset (UTC)")
	}
	width := len(header)
	pad := func(row []string) []string {
		for len(row) < width {
			row = append(row, "")
		}
		return row
	}

	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range res.Extremes {
		row := []string{e.Date.String(), ""}
		if e.OK {
			row[1] = level(e.Value)
		}
		if daylight {
			if events, ok := sunset.Daylight(e.Date, *res.Place); ok {
				row = append(row,
					events[0].Time.Format(clockFormat),
					events[1].Time.Format(clockFormat))
			}
		}
		if err := cw.Write(pad(row)); err != nil {
			return err
		}
	}

	median, average := "", ""
	if res.Summary.Count > 0 {
		median = level(res.Summary.Median)
		average = level(res.Summary.Mean)
	}
	// A lone empty field is written as an empty line.
	if err := cw.Write([]string{""}); err != nil {
		return err
	}
	if err := cw.Write(pad([]string{"Median:", median})); err != nil {
		return err
	}
	if err := cw.Write(pad([]string{"Average:", average})); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// WriteConsole prints a short human readable summary of res.
func WriteConsole(w io.Writer, res *springtide.Result) error {
	var err error
	io := func(_ int, nexterr error) {
		if nexterr != nil && err == nil {
			err = nexterr
		}
	}

	station := string(res.Station)
	if res.StationName != "" {
		station = fmt.Sprintf("%s (%s)", res.StationName, res.Station)
	}

	if len(res.Dates) == 0 {
		io(fmt.Fprintf(w, "No spring tide dates found for station %s.\n", station))
		return err
	}

	dates := make([]string, len(res.Dates))
	for i, d := range res.Dates {
		dates[i] = d.String()
	}
	io(fmt.Fprintf(w, "Spring tide dates: %s\n", strings.Join(dates, " ")))
	io(fmt.Fprintf(w, "HH tide values at station %s using %s datum from %s to %s in chronological order (%s):\n",
		station, res.Datum, res.Dates[0], res.Dates[len(res.Dates)-1], res.Policy))
	for _, e := range res.Extremes {
		if e.OK {
			io(fmt.Fprintf(w, "  %s  %8s\n", e.Date, level(e.Value)))
		} else {
			io(fmt.Fprintf(w, "  %s  %8s  (%v)\n", e.Date, "-", e.Err))
		}
	}

	if res.Summary.Count == 0 {
		io(fmt.Fprintf(w, "No tide values were available to summarize.\n"))
		return err
	}
	io(fmt.Fprintf(w, "The median HH tide value for this date range is: %s\n", level(res.Summary.Median)))
	io(fmt.Fprintf(w, "The average HH tide value for this date range is: %s\n", level(res.Summary.Mean)))
	if gaps := res.Gaps(); gaps > 0 {
		io(fmt.Fprintf(w, "%d of %d dates had no value.\n", gaps, len(res.Dates)))
	}
	return err
}
