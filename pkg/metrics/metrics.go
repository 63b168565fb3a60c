package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "springtides"

var (
	requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "request_latency",
			Subsystem: subsystem,
			Help:      "HTTP request latencies in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.2, 0.4, 0.8, 1.0, 2.0, 4.0, 8.0, 16.0, 32.0},
		},
		[]string{"verb", "path", "code"},
	)

	upstreamFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "upstream_fetches_total",
			Subsystem: subsystem,
			Help:      "NOAA high/low fetches by outcome.",
		},
		[]string{"outcome"},
	)

	springDates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:      "spring_dates_total",
			Subsystem: subsystem,
			Help:      "Spring tide dates found across all scans.",
		},
	)

	pageViews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "page_views_total",
			Subsystem: subsystem,
			Help:      "Index page views, split by whether the visitor had a session.",
		},
		[]string{"returning"},
	)
)

// Fetch outcomes.
const (
	FetchOK          = "ok"
	FetchUnavailable = "unavailable"
	FetchMalformed   = "malformed"
	FetchEmpty       = "empty"
)

func init() {
	prometheus.MustRegister(
		requestLatency,
		upstreamFetches,
		springDates,
		pageViews,
	)
}

func ObserveRequestLatency(verb, path, code string, latency float64) {
	requestLatency.With(prometheus.Labels{
		"code": code,
		"verb": verb,
		"path": path,
	}).Observe(latency)
}

func ObserveFetch(outcome string) {
	upstreamFetches.WithLabelValues(outcome).Inc()
}

func ObserveSpringDates(n int) {
	springDates.Add(float64(n))
}

func ObservePageView(returning bool) {
	pageViews.WithLabelValues(strconv.FormatBool(returning)).Inc()
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func LatencyHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		verb := r.Method
		path := ""
		if r.URL != nil {
			path = r.URL.Path
		}
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		// Defer metric observing. Any panics in next are reported as 500 errors
		// and then re-thrown.
		defer func() {
			if err := recover(); err != nil {
				ObserveRequestLatency(verb, path, "500", time.Since(t).Seconds())
				panic(err)
			}
			ObserveRequestLatency(verb, path, strconv.Itoa(rec.code), time.Since(t).Seconds())
		}()

		next.ServeHTTP(rec, r)
	})
}
