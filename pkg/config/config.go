// Package config loads settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/spencer-p/springtides/pkg/extreme"
	"github.com/spencer-p/springtides/pkg/noaa"
)

// Prefix is prepended to every environment variable, e.g.
// SPRINGTIDES_PORT.
const Prefix = "springtides"

type Config struct {
	Port   string `default:"8080"`
	Prefix string `default:"/"`
	Debug  bool

	NOAAURL string         `envconfig:"NOAA_URL" default:"https://api.tidesandcurrents.noaa.gov/api/prod/datagetter"`
	Datum   string         `default:"MLLW"`
	Units   string         `default:"english"`
	Policy  extreme.Policy `default:"max-of-window"`

	Concurrency    int           `default:"4"`
	MaxRetries     uint64        `split_words:"true" default:"3"`
	CacheTTL       time.Duration `split_words:"true" default:"23h"`
	RequestTimeout time.Duration `split_words:"true" default:"30s"`
	// MaxRangeDays bounds how many days one request may cover.
	MaxRangeDays int `split_words:"true" default:"366"`

	// AuditFile receives raw payloads as JSON lines when set.
	AuditFile string `split_words:"true"`
	// TruncateAudit empties AuditFile when the process starts.
	TruncateAudit bool `split_words:"true"`
	// DatabaseURL, when set, stores raw payloads in Postgres as well.
	DatabaseURL string `split_words:"true"`
	// StationsFile lists accepted station ids, one per line.
	StationsFile string `split_words:"true"`
	// DefaultStation is used by the CLI when no station is given.
	DefaultStation string `split_words:"true" default:"8518750"`

	// SessionKey signs the index page's preference cookie.
	SessionKey string `split_words:"true" default:"deadbeef"`
	// EncryptionKey is stretched into the cookie encryption key.
	EncryptionKey string `split_words:"true" default:"deadbeef"`
}

// Load reads the environment, applying defaults where unset.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return errors.New("SPRINGTIDES_CONCURRENCY must be at least 1")
	}
	if c.MaxRangeDays < 1 {
		return errors.New("SPRINGTIDES_MAX_RANGE_DAYS must be at least 1")
	}
	if c.CacheTTL < 0 {
		return errors.New("SPRINGTIDES_CACHE_TTL must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("SPRINGTIDES_REQUEST_TIMEOUT must be positive")
	}
	if c.Units != "english" && c.Units != "metric" {
		return fmt.Errorf("SPRINGTIDES_UNITS must be english or metric, not %q", c.Units)
	}
	if _, err := noaa.ParseStation(c.DefaultStation); err != nil {
		return fmt.Errorf("SPRINGTIDES_DEFAULT_STATION: %w", err)
	}
	if c.SessionKey == "" {
		return errors.New("SPRINGTIDES_SESSION_KEY must not be empty")
	}
	return nil
}
