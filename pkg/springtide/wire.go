package springtide

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spencer-p/springtides/pkg/audit"
	"github.com/spencer-p/springtides/pkg/cache"
	"github.com/spencer-p/springtides/pkg/config"
	"github.com/spencer-p/springtides/pkg/data"
	"github.com/spencer-p/springtides/pkg/noaa"
)

// FromConfig builds a Runner talking to NOAA as configured. The returned func
// releases whatever the sinks hold open.
func FromConfig(c *config.Config) (*Runner, func() error, error) {
	client := &noaa.Client{
		BaseURL:    c.NOAAURL,
		HTTP:       &http.Client{Timeout: c.RequestTimeout},
		MaxRetries: c.MaxRetries,
	}
	if c.CacheTTL > 0 {
		client.Cache = cache.NewTimed(c.CacheTTL)
	}

	var sinks audit.Multi
	var closers []func() error
	if c.AuditFile != "" {
		f, err := audit.OpenFile(c.AuditFile, c.TruncateAudit)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, f)
		closers = append(closers, f.Close)
	}
	if c.DatabaseURL != "" {
		db, err := data.Postgres(c.DatabaseURL)
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		sinks = append(sinks, &audit.DBSink{DB: db})
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, sqlDB.Close)
		}
	}

	r := &Runner{
		Fetcher:     client,
		Policy:      c.Policy,
		Concurrency: c.Concurrency,
		Datum:       c.Datum,
		Units:       c.Units,
	}
	if len(sinks) > 0 {
		r.Sink = sinks
	}
	return r, func() error { return closeAll(closers) }, nil
}

// LoadStations reads the configured station list. No file means every
// station is accepted.
func LoadStations(c *config.Config) (noaa.StationSet, error) {
	if c.StationsFile == "" {
		return nil, nil
	}
	f, err := os.Open(c.StationsFile)
	if err != nil {
		return nil, fmt.Errorf("open stations file: %w", err)
	}
	defer f.Close()
	return noaa.LoadStationSet(f)
}

func closeAll(closers []func() error) error {
	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
