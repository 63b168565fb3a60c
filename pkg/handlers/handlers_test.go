package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spencer-p/springtides/pkg/cache"
	"github.com/spencer-p/springtides/pkg/noaa"
	"github.com/spencer-p/springtides/pkg/spring"
	"github.com/spencer-p/springtides/pkg/springtide"
	"github.com/spencer-p/springtides/pkg/timetricks"
)

// upstream answers NOAA style for the dates in levels, keyed YYYYMMDD, and
// fails for everything else.
type upstream struct {
	levels map[string]string
	calls  int32
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&u.calls, 1)
	date := r.URL.Query().Get("begin_date")
	level, ok := u.levels[date]
	if !ok {
		http.Error(w, "no data", http.StatusServiceUnavailable)
		return
	}
	fmt.Fprintf(w, `{
		"metadata": {"id":"8518750","name":"The Battery","lat":"40.7006","lon":"-74.0142"},
		"data": [
			{"t":"x", "v":"-0.5", "ty":"L "},
			{"t":"x", "v":%q, "ty":"HH"}
		]
	}`, level)
}

// newServer builds a Server whose scanner treats the 1st and 15th of every
// month as spring tide dates.
func newServer(t *testing.T, levels map[string]string) (*Server, *upstream) {
	t.Helper()
	up := &upstream{levels: levels}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	oracle := spring.OracleFunc(func(d timetricks.DateKey) (float64, error) {
		if d.Day == 1 || d.Day == 15 {
			return 0, nil
		}
		return 0.5, nil
	})
	return &Server{
		Runner: &springtide.Runner{
			Scanner: spring.Scanner{Oracle: oracle},
			Fetcher: &noaa.Client{BaseURL: srv.URL, MaxRetries: 0},
		},
	}, up
}

func do(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	Register(r, s)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSpringDates(t *testing.T) {
	s := &Server{Runner: &springtide.Runner{}}

	rec := do(t, s, "/api/v1/springdates?start=20240101&end=20240131&o=json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"dates":["20240111","20240125"]}`, rec.Body.String())

	rec = do(t, s, "/api/v1/springdates?start=20240101&end=20240131")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20240111\n20240125\n", rec.Body.String())
}

func TestSpringDatesBadRequest(t *testing.T) {
	s := &Server{Runner: &springtide.Runner{}}
	for _, target := range []string{
		"/api/v1/springdates?start=2024-01-01&end=20240131",
		"/api/v1/springdates?start=20240101&end=20240230",
		"/api/v1/springdates?start=20240201&end=20240101",
		"/api/v1/springdates?start=20240101&end=20240131&o=xml",
	} {
		rec := do(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestRangeTooLong(t *testing.T) {
	s, up := newServer(t, nil)
	for _, target := range []string{
		"/api/v1/springdates?start=00010101&end=99991231",
		"/api/v1/springdates?start=20240101&end=20250101&o=json",
		"/api/v1/springtides?station=8518750&start=00010101&end=99991231",
		"/api/v1/springtides.svg?station=8518750&start=20240101&end=20250101",
	} {
		rec := do(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "more than 366 days", target)
	}
	assert.Zero(t, atomic.LoadInt32(&up.calls), "oversized ranges reached upstream")

	s.MaxRangeDays = 31
	rec := do(t, s, "/api/v1/springdates?start=20240101&end=20240131")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, s, "/api/v1/springdates?start=20240101&end=20240201")
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = do(t, s, "/?station=8518750&start=20240101&end=20240201")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "more than 31 days")
	assert.Zero(t, atomic.LoadInt32(&up.calls))
}

func TestSpringTidesJSON(t *testing.T) {
	s, _ := newServer(t, map[string]string{
		"20240301": "5.1",
		"20240315": "6.2",
		"20240401": "5.5",
	})

	rec := do(t, s, "/api/v1/springtides?station=8518750&start=20240301&end=20240415")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, noaa.TheBattery, got.Station)
	assert.Equal(t, "The Battery", got.StationName)
	assert.Len(t, got.Dates, 4)
	require.Len(t, got.Values, 4)
	assert.Equal(t, 5.1, *got.Values[0])
	assert.Nil(t, got.Values[3])
	require.Len(t, got.Gaps, 1)
	assert.Equal(t, "20240415", got.Gaps[0].Date.String())
	require.NotNil(t, got.Summary)
	assert.Equal(t, 5.5, got.Summary.Median)
	assert.Equal(t, 3, got.Summary.Count)
}

func TestSpringTidesAllGaps(t *testing.T) {
	s, _ := newServer(t, nil)

	rec := do(t, s, "/api/v1/springtides?station=8518750&start=20240301&end=20240315&o=json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Nil(t, got["summary"])
	assert.Len(t, got["gaps"], 2)
}

func TestSpringTidesBadRequest(t *testing.T) {
	s, up := newServer(t, nil)
	for _, target := range []string{
		"/api/v1/springtides?station=battery&start=20240301&end=20240315",
		"/api/v1/springtides?station=8518750&start=20240301&end=202403",
		"/api/v1/springtides?station=8518750&start=20240315&end=20240301",
		"/api/v1/springtides?station=8518750&start=20240301&end=20240315&policy=mean",
		"/api/v1/springtides?station=8518750&start=20240301&end=20240315&o=xlsx",
	} {
		rec := do(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Zero(t, atomic.LoadInt32(&up.calls), "bad requests reached upstream")
}

func TestSpringTidesStationFallback(t *testing.T) {
	s, _ := newServer(t, map[string]string{"20240301": "5.1"})
	s.Stations = noaa.StationSet{noaa.TheBattery: {}}

	rec := do(t, s, "/api/v1/springtides?station=9413745&start=20240301&end=20240301")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.StationFallback)
	assert.Equal(t, noaa.TheBattery, got.Station)
}

func TestSpringTidesCSV(t *testing.T) {
	s, _ := newServer(t, map[string]string{"20240301": "5.1", "20240315": "6.2"})

	rec := do(t, s, "/api/v1/springtides?station=8518750&start=20240301&end=20240315&o=csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "Date,HH Tide Values (MLLW)"), body)
	assert.Contains(t, body, "20240301,5.100")
	assert.Contains(t, body, "Median:,5.650")
	assert.Contains(t, body, "Average:,5.650")
}

func TestChart(t *testing.T) {
	s, _ := newServer(t, map[string]string{"20240301": "5.1"})

	rec := do(t, s, "/api/v1/springtides.svg?station=8518750&start=20240301&end=20240315")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<svg"))
}

func TestResponsesAreCached(t *testing.T) {
	s, up := newServer(t, map[string]string{"20240301": "5.1", "20240315": "6.2"})
	s.Cache = cache.NewTimed(time.Hour)

	target := "/api/v1/springtides?station=8518750&start=20240301&end=20240315&o=text"
	first := do(t, s, target)
	require.Equal(t, http.StatusOK, first.Code)
	calls := atomic.LoadInt32(&up.calls)
	require.Equal(t, int32(2), calls)

	second := do(t, s, target)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "text/plain", second.Header().Get("Content-Type"))
	assert.Equal(t, calls, atomic.LoadInt32(&up.calls), "cached response went upstream")
}

func TestGapsAreNotCached(t *testing.T) {
	s, up := newServer(t, map[string]string{"20240301": "5.1"})
	s.Cache = cache.NewTimed(time.Hour)

	target := "/api/v1/springtides?station=8518750&start=20240301&end=20240315"
	do(t, s, target)
	do(t, s, target)
	assert.Equal(t, int32(4), atomic.LoadInt32(&up.calls))
}

func TestIndex(t *testing.T) {
	s, _ := newServer(t, map[string]string{"20240301": "5.1"})
	s.Sessions = NewSessions("test-session-key", "test-password")

	clock := clockwork.NewFakeClockAt(time.Date(2024, time.May, 4, 18, 0, 0, 0, time.UTC))
	index := s.makeIndexWithClock(clock)

	// Blank form, defaulting to the next 30 days.
	rec := httptest.NewRecorder()
	index(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="20240504"`)
	assert.Contains(t, rec.Body.String(), `value="20240603"`)
	assert.Empty(t, rec.Result().Cookies())

	// A filled in form runs and remembers the station.
	rec = httptest.NewRecorder()
	index(rec, httptest.NewRequest(http.MethodGet,
		"/?station=8518750&start=20240301&end=20240301&policy=first-higher-high", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "The Battery (8518750)")
	assert.Contains(t, body, "5.100")
	assert.Contains(t, body, "<svg")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	// The next visit fills the station in from the cookie.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	index(rec, req)
	assert.Contains(t, rec.Body.String(), `name="station" value="8518750"`)
	assert.Contains(t, rec.Body.String(), `<option value="first-higher-high" selected>`)
}

func TestIndexShowsErrors(t *testing.T) {
	s, _ := newServer(t, nil)
	rec := do(t, s, "/?station=8518750&start=20240301&end=20240230")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="error"`)
}
