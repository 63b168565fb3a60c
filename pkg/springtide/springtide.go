// Package springtide ties the pieces together: it scans a range for spring
// tide dates, fetches the observed extrema for each, reduces them to one level
// per date and summarizes the series.
package springtide

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spencer-p/springtides/pkg/audit"
	"github.com/spencer-p/springtides/pkg/extreme"
	"github.com/spencer-p/springtides/pkg/log"
	"github.com/spencer-p/springtides/pkg/metrics"
	"github.com/spencer-p/springtides/pkg/noaa"
	"github.com/spencer-p/springtides/pkg/spring"
	"github.com/spencer-p/springtides/pkg/stats"
	"github.com/spencer-p/springtides/pkg/sunset"
	"github.com/spencer-p/springtides/pkg/timetricks"
)

const defaultConcurrency = 4

// ErrNoObservations marks a date whose response held nothing usable.
var ErrNoObservations = errors.New("no usable observations")

// Fetcher retrieves the observations for one station and date.
type Fetcher interface {
	HighLow(ctx context.Context, q *noaa.HighLowQuery) (*noaa.Response, error)
}

// Runner runs requests. Only Fetcher is required.
type Runner struct {
	Scanner spring.Scanner
	Fetcher Fetcher
	Policy  extreme.Policy
	// Sink receives every payload fetched. Nil discards them.
	Sink audit.Sink
	// Concurrency bounds simultaneous fetches.
	Concurrency int
	Datum       string
	Units       string
}

// Request names a station and an inclusive date range.
type Request struct {
	Station noaa.Station
	Start   timetricks.DateKey
	End     timetricks.DateKey
	// StationFallback is set when the asked-for station was unknown and
	// Station holds the default instead.
	StationFallback bool
}

// Extreme is the level reported for one spring tide date. OK is false when
// no level could be had, and Err says why.
type Extreme struct {
	Date  timetricks.DateKey
	Value float64
	OK    bool
	Err   error
}

// Result is the outcome of a run. Extremes is index aligned with Dates.
type Result struct {
	Station     noaa.Station
	StationName string
	// Place is the station's location when NOAA reported it.
	Place    *sunset.Place
	Datum    string
	Policy   extreme.Policy
	Dates    []timetricks.DateKey
	Extremes []Extreme
	Summary  stats.Summary
}

// Values returns the levels that are present, in date order.
func (r *Result) Values() []float64 {
	var out []float64
	for _, e := range r.Extremes {
		if e.OK {
			out = append(out, e.Value)
		}
	}
	return out
}

// Gaps counts dates without a level.
func (r *Result) Gaps() int {
	return len(r.Extremes) - len(r.Values())
}

// WithPolicy returns a copy of r that extracts with p.
func (r *Runner) WithPolicy(p extreme.Policy) *Runner {
	cp := *r
	cp.Policy = p
	return &cp
}

// Run scans, fetches and summarizes. Range errors and cancellation are
// returned as is. A failed fetch only leaves a gap for its date. If every
// date is a gap, the result is returned along with stats.ErrEmptySeries.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	dates, err := r.Scanner.Scan(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	metrics.ObserveSpringDates(len(dates))
	log.Infow("scanned for spring tides",
		"station", req.Station, "start", req.Start, "end", req.End, "dates", len(dates))

	extremes := make([]Extreme, len(dates))
	metas := make([]*noaa.Metadata, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency())
	for i, d := range dates {
		g.Go(func() error {
			ex, meta, err := r.extremeFor(gctx, req.Station, d)
			if err != nil {
				return err
			}
			// Each goroutine owns its index, so completion order does not
			// matter.
			extremes[i] = ex
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Station:  req.Station,
		Datum:    r.datum(),
		Policy:   r.Policy,
		Dates:    dates,
		Extremes: extremes,
	}
	result.setStation(metas)

	summary, err := stats.Summarize(result.Values())
	if err != nil {
		return result, err
	}
	result.Summary = summary
	return result, nil
}

// extremeFor fetches and reduces one date. Only cancellation is returned as
// an error; everything else becomes a gap.
func (r *Runner) extremeFor(ctx context.Context, station noaa.Station, d timetricks.DateKey) (Extreme, *noaa.Metadata, error) {
	resp, err := r.Fetcher.HighLow(ctx, &noaa.HighLowQuery{
		Station: station,
		Date:    d,
		Datum:   r.Datum,
		Units:   r.Units,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Extreme{}, nil, ctx.Err()
		}
		outcome := metrics.FetchUnavailable
		if errors.Is(err, noaa.ErrMalformedPayload) {
			outcome = metrics.FetchMalformed
		}
		metrics.ObserveFetch(outcome)
		log.Warnw("no data for date", "station", station, "date", d, "error", err)
		return Extreme{Date: d, Err: err}, nil, nil
	}

	r.record(ctx, station, d, resp)

	v, ok := extreme.Extract(resp.Data, r.Policy)
	if !ok {
		metrics.ObserveFetch(metrics.FetchEmpty)
		log.Warnw("no usable observations", "station", station, "date", d,
			"observations", len(resp.Data), "policy", r.Policy)
		return Extreme{Date: d, Err: ErrNoObservations}, resp.Metadata, nil
	}
	metrics.ObserveFetch(metrics.FetchOK)
	log.Debugw("extreme", "station", station, "date", d, "level", v, "policy", r.Policy)
	return Extreme{Date: d, Value: v, OK: true}, resp.Metadata, nil
}

func (r *Runner) record(ctx context.Context, station noaa.Station, d timetricks.DateKey, resp *noaa.Response) {
	if r.Sink == nil || len(resp.Raw) == 0 {
		return
	}
	err := r.Sink.Record(ctx, audit.Entry{
		Station:   string(station),
		Date:      d.String(),
		FetchedAt: time.Now().UTC(),
		Payload:   resp.Raw,
	})
	if err != nil {
		log.Errorw("failed to record payload", "station", station, "date", d, "error", err)
	}
}

// setStation fills in the station name and place from the first response
// that carried metadata.
func (res *Result) setStation(metas []*noaa.Metadata) {
	for _, m := range metas {
		if m == nil {
			continue
		}
		res.StationName = m.Name
		if lat, lon, err := m.Coordinates(); err == nil {
			res.Place = &sunset.Place{Lat: lat, Long: lon}
		}
		return
	}
}

func (r *Runner) concurrency() int {
	if r.Concurrency > 0 {
		return r.Concurrency
	}
	return defaultConcurrency
}

func (r *Runner) datum() string {
	if r.Datum != "" {
		return r.Datum
	}
	return noaa.DefaultDatum
}

// DefaultMaxRangeDays bounds a range when no other limit is given.
const DefaultMaxRangeDays = 366

// RangeTooLongError is returned for a range covering more days than allowed.
type RangeTooLongError struct {
	Start, End timetricks.DateKey
	Max        int
}

func (e *RangeTooLongError) Error() string {
	return fmt.Sprintf("date range %s to %s covers more than %d days", e.Start, e.End, e.Max)
}

// ParseRange reads an inclusive YYYYMMDD range covering at most maxDays
// days. maxDays below 1 means DefaultMaxRangeDays.
func ParseRange(start, end string, maxDays int) (from, to timetricks.DateKey, err error) {
	from, err = timetricks.ParseDateKey(start)
	if err != nil {
		return from, to, fmt.Errorf("start: %w", err)
	}
	to, err = timetricks.ParseDateKey(end)
	if err != nil {
		return from, to, fmt.Errorf("end: %w", err)
	}
	if from.After(to) {
		return from, to, &spring.InvalidRangeError{Start: from, End: to}
	}
	if maxDays < 1 {
		maxDays = DefaultMaxRangeDays
	}
	if from.DaysUntil(to) >= maxDays {
		return from, to, &RangeTooLongError{Start: from, End: to, Max: maxDays}
	}
	return from, to, nil
}

// ParseRequest validates raw inputs. Malformed dates and stations are
// errors, as are ranges over maxDays days (see ParseRange). A well formed
// station the set does not know is replaced with noaa.DefaultStation and
// flagged.
func ParseRequest(station, start, end string, known noaa.StationSet, maxDays int) (Request, error) {
	s, fellBack, err := known.Resolve(station)
	if err != nil {
		return Request{}, err
	}
	from, to, err := ParseRange(start, end, maxDays)
	if err != nil {
		return Request{}, err
	}
	return Request{Station: s, Start: from, End: to, StationFallback: fellBack}, nil
}
