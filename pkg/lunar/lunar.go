// Package lunar computes how much of the Moon's disk is lit on a given date.
// A value near 0 means new moon and a value near 1 means full moon, which is
// what the spring tide scanner keys on.
package lunar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/solar"

	"github.com/spencer-p/springtides/pkg/timetricks"
)

const (
	// SampleHour is the UTC hour at which a date's phase is sampled. Noon keeps
	// the sample away from the day boundary.
	SampleHour = 12

	// DefaultElevation in meters matches the reference ephemeris setup.
	DefaultElevation = -6.0

	kmPerAU = 149597870.7
)

// Observer is the vantage point for phase samples. The phase is computed
// geocentrically so Elevation does not move the result.
type Observer struct {
	Elevation float64
}

// Default is the observer used by PhaseAt.
var Default = Observer{Elevation: DefaultElevation}

// PhaseAt returns the lit fraction of the Moon at noon UTC on date, as seen by
// Default.
func PhaseAt(date timetricks.DateKey) (float64, error) {
	return Default.PhaseAt(date)
}

// PhaseAt returns the lit fraction of the Moon in [0,1] at noon UTC on date.
func (o Observer) PhaseAt(date timetricks.DateKey) (float64, error) {
	if err := date.Validate(); err != nil {
		return 0, err
	}
	return Illuminated(date.At(SampleHour)), nil
}

// Illuminated returns the lit fraction of the Moon's disk at t.
func Illuminated(t time.Time) float64 {
	jde := julian.TimeToJD(t.UTC())
	λ, β, Δ := moonposition.Position(jde)

	T := base.J2000Century(jde)
	λ0 := solar.ApparentLongitude(T)
	R := solar.Radius(T) * kmPerAU

	// Geocentric elongation of the Moon from the Sun.
	cosψ := β.Cos() * (λ - λ0).Cos()
	ψ := math.Acos(math.Max(-1, math.Min(1, cosψ)))

	// Phase angle, Meeus (48.3).
	i := math.Atan2(R*math.Sin(ψ), Δ-R*cosψ)
	return (1 + math.Cos(i)) / 2
}
