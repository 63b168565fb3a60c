package sunset

import (
	"github.com/keep94/sunrise"

	"github.com/spencer-p/springtides/pkg/timetricks"
)

// maxNudges bounds the search for the right calendar day; the sunrise package
// anchors to the nearest event, which may land on a neighboring day.
const maxNudges = 3

// Daylight returns the UTC sunrise and sunset on date at place. ok is false
// when there is no sunrise that day, as in polar night.
func Daylight(date timetricks.DateKey, place Place) (events SunEvents, ok bool) {
	noon := date.At(12)
	var s sunrise.Sunrise
	s.Around(place.Lat, place.Long, noon)

	// Make sure we start with the correct day
	for i := 0; i < maxNudges; i++ {
		rise := s.Sunrise().UTC()
		if rise.IsZero() {
			return nil, false
		}
		switch {
		case timetricks.DateKeyOf(rise).Before(date):
			s.AddDays(1)
		case timetricks.DateKeyOf(rise).After(date):
			s.AddDays(-1)
		default:
			return SunEvents{
				{s.Sunrise().UTC(), Sunrise},
				{s.Sunset().UTC(), Sunset},
			}, true
		}
	}
	return nil, false
}
