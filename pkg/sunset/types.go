package sunset

import (
	"fmt"
	"time"
)

// Place is a lat/long coordinate on the Earth.
type Place struct {
	Lat, Long float64
}

var (
	TheBattery = Place{40.7006, -74.0142}
	SantaCruz  = Place{36.9583, -122.0173}
)

// SunEvents is a time series of SunEvent.
type SunEvents []SunEvent

// SunEvent is a sunrise or sunset event.
type SunEvent struct {
	Time  time.Time
	Event Event
}

func (s *SunEvent) String() string {
	return fmt.Sprintf("%s %s",
		s.Time.Format(time.RFC822),
		func() string {
			if s.Event == Sunrise {
				return "Sunrise"
			} else {
				return "Sunset"
			}
		}())
}

// Event encodes a sunrise or sunset event.
type Event bool

const (
	Sunrise Event = true
	Sunset  Event = false
)
