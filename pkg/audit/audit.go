// Package audit records the raw payloads fetched from NOAA. Nothing reads the
// records back; they exist for people checking a run after the fact.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/spencer-p/springtides/pkg/data"
)

// Entry is one fetched payload.
type Entry struct {
	Station   string          `json:"station"`
	Date      string          `json:"date"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Sink receives entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Nop drops every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// WriterSink writes one JSON object per line.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// NewWriterSink writes entries to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// OpenFile appends entries to the file at path. With truncate, the file is
// emptied first so it only holds the coming run.
func OpenFile(path string, truncate bool) (*WriterSink, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &WriterSink{w: f, c: f}, nil
}

func (s *WriterSink) Record(_ context.Context, e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(line)
	return err
}

func (s *WriterSink) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// DBSink stores entries as data.RawResponse rows.
type DBSink struct {
	DB *gorm.DB
}

func (s *DBSink) Record(ctx context.Context, e Entry) error {
	row := Row(e)
	return s.DB.WithContext(ctx).Create(&row).Error
}

// Row converts an entry to its database form.
func Row(e Entry) data.RawResponse {
	return data.RawResponse{
		Station:   e.Station,
		Date:      e.Date,
		FetchedAt: e.FetchedAt,
		Payload:   string(e.Payload),
	}
}

// Multi fans an entry out to several sinks. Every sink is tried; the first
// error is returned.
type Multi []Sink

func (m Multi) Record(ctx context.Context, e Entry) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
