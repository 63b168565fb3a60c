package visualize

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/spencer-p/springtides/pkg/springtide"
)

const (
	width  = 1200
	height = 300

	// Levels always shown, in feet above datum.
	floorLevel   = -2
	ceilingLevel = 8
)

// Chart draws the extreme levels of a run as bars, one slot per spring tide
// date, with a line across at the median.
type Chart struct {
	res    *springtide.Result
	lo, hi float64
}

func NewChart(res *springtide.Result) *Chart {
	c := &Chart{res: res, lo: floorLevel, hi: ceilingLevel}
	for _, v := range res.Values() {
		c.lo = math.Min(c.lo, math.Floor(v))
		c.hi = math.Max(c.hi, math.Ceil(v))
	}
	return c
}

type point struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

func (img *Chart) Encode(w io.Writer) (int, error) {
	var n int
	var err error
	io := func(nextn int, nexterr error) {
		n += nextn
		if nexterr != nil && err == nil {
			err = nexterr
		}
	}

	io(fmt.Fprintf(w, `<svg viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`, width, height))

	// Draw markers for tide levels.
	io(fmt.Fprintf(w, `<rect class="two_foot" fill="#e76f51" x="%d" y="%d" width="%d" height="%d"/>`,
		0, img.levelToY(2),
		width, img.levelToY(1)-img.levelToY(2)+1))
	io(fmt.Fprintf(w, `<rect class="one_foot" fill="#f4a261" x="%d" y="%d" width="%d" height="%d"/>`,
		0, img.levelToY(1),
		width, img.levelToY(0)-img.levelToY(1)+1))
	io(fmt.Fprintf(w, `<rect class="zero_foot" fill="#e9c46a" x="%d" y="%d" width="%d" height="%d"/>`,
		0, img.levelToY(0),
		width, img.levelToY(img.lo)-img.levelToY(0)+1))

	slots := len(img.res.Extremes)
	points := make([]point, slots)
	for i, e := range img.res.Extremes {
		points[i].Date = e.Date.String()
		x := img.slotToX(i)
		slotw := img.slotToX(i+1) - x
		if !e.OK {
			io(fmt.Fprintf(w, `<rect class="gap" fill="none" stroke="gray" stroke-dasharray="4" x="%d" y="%d" width="%d" height="%d"/>`,
				x+1, 0, slotw-2, height))
			continue
		}
		v := e.Value
		points[i].Value = &v

		top, base := img.levelToY(v), img.levelToY(0)
		if top > base {
			top, base = base, top
		}
		io(fmt.Fprintf(w, `<rect class="tide" fill="skyblue" x="%d" y="%d" width="%d" height="%d"><title>%s %.3f</title></rect>`,
			x+1, top, slotw-2, base-top, e.Date, v))
	}

	if img.res.Summary.Count > 0 {
		y := img.levelToY(img.res.Summary.Median)
		io(fmt.Fprintf(w, `<line class="median" stroke="navy" stroke-width="2" x1="%d" y1="%d" x2="%d" y2="%d"/>`,
			0, y, width, y))
	}

	// Insert the series as JSON for scripts.
	io(fmt.Fprintf(w, `<text class="series" visibility="hidden">`))
	if encErr := json.NewEncoder(w).Encode(points); encErr != nil && err == nil {
		err = encErr
	}
	io(fmt.Fprintf(w, `</text>`))

	io(fmt.Fprintf(w, `</svg>`))

	return n, err
}

func (img *Chart) levelToY(level float64) int {
	return height - int((level-img.lo)*height/(img.hi-img.lo))
}

func (img *Chart) slotToX(i int) int {
	slots := len(img.res.Extremes)
	if slots == 0 {
		return 0
	}
	return i * width / slots
}
