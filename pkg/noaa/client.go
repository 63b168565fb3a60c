package noaa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/spencer-p/springtides/pkg/cache"
)

var (
	// ErrUpstreamUnavailable means NOAA could not be reached or refused the
	// query.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedPayload means NOAA answered with something that does not
	// decode.
	ErrMalformedPayload = errors.New("malformed payload")
)

// UpstreamError carries the status and message of a failed query.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrUpstreamUnavailable, e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstreamUnavailable }

const maxErrorBody = 512

// Client fetches high/low observations from NOAA. The zero value works and
// talks to NOAA_URL without caching or retries.
type Client struct {
	// BaseURL overrides NOAA_URL.
	BaseURL string
	HTTP    *http.Client
	// Cache holds raw response bodies keyed by request URL.
	Cache *cache.Timed
	// MaxRetries bounds retries of transient failures.
	MaxRetries uint64
	// RetryInterval is the first backoff interval; 500ms if zero.
	RetryInterval time.Duration
}

// HighLow runs q and returns the decoded response.
func (c *Client) HighLow(ctx context.Context, q *HighLowQuery) (*Response, error) {
	base := c.BaseURL
	if base == "" {
		base = NOAA_URL
	}
	addr, err := q.url(base)
	if err != nil {
		return nil, err
	}
	key := addr.String()

	if c.Cache != nil {
		if raw, ok := c.Cache.Get(key); ok {
			return decode(raw)
		}
	}

	var raw []byte
	fetch := func() error {
		var err error
		raw, err = c.get(ctx, key)
		return err
	}
	if err := backoff.Retry(fetch, c.backoff(ctx)); err != nil {
		return nil, err
	}

	resp, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &UpstreamError{Status: http.StatusOK, Message: resp.Error.Message}
	}

	if c.Cache != nil {
		c.Cache.Set(key, raw)
	}
	return resp, nil
}

func (c *Client) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.RetryInterval > 0 {
		b.InitialInterval = c.RetryInterval
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, c.MaxRetries), ctx)
}

// get performs one request. Errors that retrying cannot fix are wrapped as
// permanent.
func (c *Client) get(ctx context.Context, addr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		uerr := &UpstreamError{Status: resp.StatusCode, Message: string(body)}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, uerr
		}
		return nil, backoff.Permanent(uerr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUpstreamUnavailable, err)
	}
	return body, nil
}

func decode(raw []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	resp.Raw = raw
	return &resp, nil
}
