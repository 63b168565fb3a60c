package noaa

import (
	"fmt"
	"testing"
	"time"

	"github.com/spencer-p/springtides/pkg/timetricks"
)

func TestQueryURL(t *testing.T) {
	in := HighLowQuery{
		Date:    timetricks.DateKey{Year: 2024, Month: time.January, Day: 31},
		Station: TheBattery,
	}
	want := fmt.Sprintf("https://api.tidesandcurrents.noaa.gov/api/prod/datagetter?application=springtides&begin_date=20240131&datum=MLLW&end_date=20240201&format=json&product=high_low&station=%s&time_zone=gmt&units=english", TheBattery)
	addr, err := in.url(NOAA_URL)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	got := addr.String()
	if want != got {
		t.Errorf("got  %q", got)
		t.Errorf("want %q", want)
	}
}

func TestQueryURLOverrides(t *testing.T) {
	in := HighLowQuery{
		Date:    timetricks.DateKey{Year: 2024, Month: time.January, Day: 11},
		Station: SantaCruz,
		Datum:   "NAVD",
		Units:   "metric",
	}
	vals := in.build()
	if got := vals.Get("datum"); got != "NAVD" {
		t.Errorf("datum = %q", got)
	}
	if got := vals.Get("units"); got != "metric" {
		t.Errorf("units = %q", got)
	}
}
