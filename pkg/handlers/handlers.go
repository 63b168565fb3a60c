package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/spencer-p/springtides/pkg/cache"
	"github.com/spencer-p/springtides/pkg/extreme"
	"github.com/spencer-p/springtides/pkg/log"
	"github.com/spencer-p/springtides/pkg/noaa"
	"github.com/spencer-p/springtides/pkg/report"
	"github.com/spencer-p/springtides/pkg/spring"
	"github.com/spencer-p/springtides/pkg/springtide"
	"github.com/spencer-p/springtides/pkg/stats"
	"github.com/spencer-p/springtides/pkg/timetricks"
	"github.com/spencer-p/springtides/pkg/visualize"
)

// Server holds what the handlers need to answer requests.
type Server struct {
	Runner   *springtide.Runner
	Stations noaa.StationSet
	// MaxRangeDays bounds the days one request may cover. Zero means
	// springtide.DefaultMaxRangeDays.
	MaxRangeDays int
	// Cache holds rendered responses keyed by method and URL. Nil disables
	// it.
	Cache *cache.Timed
	// Sessions remembers index page preferences. Nil disables them.
	Sessions *Sessions
}

func Register(r *mux.Router, s *Server) {
	r.Handle("/", s.makeIndex())
	r.Handle("/api/v1/springdates", s.cached(s.serveSpringDates))
	r.Handle("/api/v1/springtides", s.cached(s.serveSpringTides))
	r.Handle("/api/v1/springtides.svg", s.cached(s.serveChart))
}

// badRequestError marks a query parameter the client got wrong.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &badRequestError{fmt.Errorf(format, args...)}
}

// statusFor maps an error to the status returned for it.
func statusFor(err error) int {
	var (
		br      *badRequestError
		date    *timetricks.InvalidDateError
		rng     *spring.InvalidRangeError
		station *noaa.InvalidStationError
	)
	switch {
	case errors.As(err, &br), errors.As(err, &date), errors.As(err, &rng), errors.As(err, &station):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Errorw("request failed", "url", r.URL.String(), "error", err)
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	fmt.Fprintf(w, "%s: %v\n", http.StatusText(code), err)
}

// renderFunc writes a complete response body to w and returns its content
// type. ok is false when the body should not be cached.
type renderFunc func(w io.Writer, r *http.Request) (contentType string, ok bool, err error)

// cached serves render, keeping successful bodies in the cache.
func (s *Server) cached(render renderFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// cache based on method and URL, which should encapsulate the query
		key := fmt.Sprintf("%s %s", r.Method, r.URL)

		if s.Cache != nil {
			if cached, ok := s.Cache.Get(key); ok {
				contentType, body, _ := strings.Cut(string(cached), "\n")
				w.Header().Set("Content-Type", contentType)
				w.WriteHeader(http.StatusOK)
				io.WriteString(w, body)
				return
			}
		}

		// Render to a buffer first so a failure can still change the status.
		var body bytes.Buffer
		contentType, ok, err := render(&body, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(body.Bytes())

		if ok && s.Cache != nil {
			s.Cache.Set(key, append([]byte(contentType+"\n"), body.Bytes()...))
		}
	})
}

func (s *Server) serveSpringDates(w io.Writer, r *http.Request) (string, bool, error) {
	start, end, err := springtide.ParseRange(r.FormValue("start"), r.FormValue("end"), s.MaxRangeDays)
	if err != nil {
		return "", false, &badRequestError{err}
	}
	dates, err := s.Runner.Scanner.Scan(start, end)
	if err != nil {
		return "", false, err
	}
	if dates == nil {
		dates = []timetricks.DateKey{}
	}

	switch r.FormValue("o") {
	case "json":
		return "application/json", true, json.NewEncoder(w).Encode(map[string]any{"dates": dates})
	case "", "text":
		for _, d := range dates {
			fmt.Fprintf(w, "%s\n", d)
		}
		return "text/plain", true, nil
	default:
		return "", false, badRequest("unknown output format %q", r.FormValue("o"))
	}
}

// run parses the common query parameters and runs the request. A result with
// no levels at all comes back with stats.ErrEmptySeries.
func (s *Server) run(r *http.Request) (springtide.Request, *springtide.Result, error) {
	req, err := springtide.ParseRequest(r.FormValue("station"), r.FormValue("start"), r.FormValue("end"),
		s.Stations, s.MaxRangeDays)
	if err != nil {
		return req, nil, &badRequestError{err}
	}
	policy, err := extreme.ParsePolicy(r.FormValue("policy"))
	if err != nil {
		return req, nil, &badRequestError{err}
	}
	runner := s.Runner
	if r.FormValue("policy") != "" {
		runner = runner.WithPolicy(policy)
	}
	if req.StationFallback {
		log.Warnw("unknown station, using default",
			"requested", r.FormValue("station"), "station", req.Station)
	}
	res, err := runner.Run(r.Context(), req)
	return req, res, err
}

func (s *Server) serveSpringTides(w io.Writer, r *http.Request) (string, bool, error) {
	format := r.FormValue("o")
	switch format {
	case "", "json", "csv", "text":
	default:
		return "", false, badRequest("unknown output format %q", format)
	}

	req, res, err := s.run(r)
	empty := errors.Is(err, stats.ErrEmptySeries)
	if err != nil && !empty {
		return "", false, err
	}
	ok := !empty && res.Gaps() == 0

	switch format {
	case "csv":
		return "text/csv", ok, report.WriteCSV(w, res)
	case "text":
		return "text/plain", ok, report.WriteConsole(w, res)
	default:
		return "application/json", ok, json.NewEncoder(w).Encode(newResponse(req, res))
	}
}

func (s *Server) serveChart(w io.Writer, r *http.Request) (string, bool, error) {
	_, res, err := s.run(r)
	empty := errors.Is(err, stats.ErrEmptySeries)
	if err != nil && !empty {
		return "", false, err
	}
	if _, err := visualize.NewChart(res).Encode(w); err != nil {
		return "", false, err
	}
	return "image/svg+xml", !empty && res.Gaps() == 0, nil
}

// Response is the JSON form of a run.
type Response struct {
	Station         noaa.Station         `json:"station"`
	StationName     string               `json:"station_name,omitempty"`
	StationFallback bool                 `json:"station_fallback,omitempty"`
	Datum           string               `json:"datum"`
	Policy          extreme.Policy       `json:"policy"`
	Dates           []timetricks.DateKey `json:"dates"`
	// Values is aligned with Dates; a gap is null.
	Values []*float64 `json:"values"`
	Gaps   []Gap      `json:"gaps,omitempty"`
	// Summary is null when no date had a value.
	Summary *stats.Summary `json:"summary"`
}

// Gap explains a date without a value.
type Gap struct {
	Date   timetricks.DateKey `json:"date"`
	Reason string             `json:"reason"`
}

func newResponse(req springtide.Request, res *springtide.Result) *Response {
	out := &Response{
		Station:         res.Station,
		StationName:     res.StationName,
		StationFallback: req.StationFallback,
		Datum:           res.Datum,
		Policy:          res.Policy,
		Dates:           res.Dates,
		Values:          make([]*float64, len(res.Extremes)),
	}
	if out.Dates == nil {
		out.Dates = []timetricks.DateKey{}
	}
	for i, e := range res.Extremes {
		if e.OK {
			v := e.Value
			out.Values[i] = &v
			continue
		}
		reason := "no value"
		if e.Err != nil {
			reason = e.Err.Error()
		}
		out.Gaps = append(out.Gaps, Gap{Date: e.Date, Reason: reason})
	}
	if res.Summary.Count > 0 {
		summary := res.Summary
		out.Summary = &summary
	}
	return out
}
