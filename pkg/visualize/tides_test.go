package visualize

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spencer-p/springtides/pkg/springtide"
	"github.com/spencer-p/springtides/pkg/stats"
	"github.com/spencer-p/springtides/pkg/timetricks"
)

func result() *springtide.Result {
	d := timetricks.DateKey{Year: 2024, Month: time.January, Day: 11}
	return &springtide.Result{
		Datum: "MLLW",
		Dates: []timetricks.DateKey{d, d.AddDays(14), d.AddDays(29)},
		Extremes: []springtide.Extreme{
			{Date: d, Value: 5.1, OK: true},
			{Date: d.AddDays(14), Err: errors.New("upstream unavailable")},
			{Date: d.AddDays(29), Value: -0.4, OK: true},
		},
		Summary: stats.Summary{Median: 2.35, Mean: 2.35, Count: 2},
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewChart(result()).Encode(&buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n == 0 {
		t.Errorf("Encode reported 0 bytes written")
	}
	got := buf.String()
	if !strings.HasPrefix(got, "<svg") || !strings.HasSuffix(got, "</svg>") {
		t.Errorf("not an svg document: %.40s...", got)
	}
	for class, want := range map[string]int{
		`class="tide"`:   2,
		`class="gap"`:    1,
		`class="median"`: 1,
	} {
		if c := strings.Count(got, class); c != want {
			t.Errorf("%s appears %d times, want %d", class, c, want)
		}
	}
	if !strings.Contains(got, `{"date":"20240125","value":null}`) {
		t.Errorf("series JSON missing gap entry:\n%s", got)
	}
	if !strings.Contains(got, "<title>20240111 5.100</title>") {
		t.Errorf("missing bar title")
	}
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewChart(&springtide.Result{}).Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(buf.String(), `class="median"`) {
		t.Errorf("median drawn for empty series")
	}
}

func TestLevelToY(t *testing.T) {
	c := NewChart(&springtide.Result{})
	if y := c.levelToY(floorLevel); y != height {
		t.Errorf("floor at y=%d, want %d", y, height)
	}
	if y := c.levelToY(ceilingLevel); y != 0 {
		t.Errorf("ceiling at y=%d, want 0", y)
	}

	// Levels outside the default window stretch it.
	res := result()
	res.Extremes[0].Value = 11.2
	c = NewChart(res)
	if y := c.levelToY(11.2); y < 0 {
		t.Errorf("tall bar clipped at y=%d", y)
	}
}
