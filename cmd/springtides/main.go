// Command springtides finds the spring tide dates in a range, fetches the
// observed high water for each from NOAA, and writes a CSV report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/spencer-p/springtides/pkg/config"
	"github.com/spencer-p/springtides/pkg/extreme"
	"github.com/spencer-p/springtides/pkg/log"
	"github.com/spencer-p/springtides/pkg/report"
	"github.com/spencer-p/springtides/pkg/springtide"
	"github.com/spencer-p/springtides/pkg/stats"
	"github.com/spencer-p/springtides/pkg/visualize"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	env, err := config.Load()
	if err != nil {
		return err
	}

	var (
		station   = flag.String("station", env.DefaultStation, "NOAA station id, 7 digits")
		start     = flag.String("start", "", "first date of the range, YYYYMMDD")
		end       = flag.String("end", "", "last date of the range, YYYYMMDD")
		policy    = flag.String("policy", env.Policy.String(), "how to pick a date's level: max-of-window, first-higher-high or first-higher-high-or-fallback-high")
		out       = flag.String("o", report.DefaultFilename, "CSV report path; empty to skip")
		svg       = flag.String("svg", "", "also draw a chart to this path")
		audit     = flag.String("audit", "data.txt", "append raw NOAA responses to this file, emptied first; empty to skip")
		maxDays   = flag.Int("max-days", env.MaxRangeDays, "refuse ranges covering more days than this")
		datesOnly = flag.Bool("dates", false, "only list the spring tide dates")
		debug     = flag.Bool("debug", env.Debug, "verbose logging")
	)
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		return err
	}
	defer log.Sync()

	if *start == "" || *end == "" {
		flag.Usage()
		return errors.New("-start and -end are required")
	}

	if *audit != "" {
		env.AuditFile = *audit
		env.TruncateAudit = true
	}
	p, err := extreme.ParsePolicy(*policy)
	if err != nil {
		return err
	}
	env.Policy = p

	stations, err := springtide.LoadStations(env)
	if err != nil {
		return err
	}
	req, err := springtide.ParseRequest(*station, *start, *end, stations, *maxDays)
	if err != nil {
		return err
	}
	if req.StationFallback {
		fmt.Printf("Station %s is not known. Using station %s (The Battery, NY).\n", *station, req.Station)
	}

	runner, closeSinks, err := springtide.FromConfig(env)
	if err != nil {
		return err
	}
	defer closeSinks()

	if *datesOnly {
		dates, err := runner.Scanner.Scan(req.Start, req.End)
		if err != nil {
			return err
		}
		for _, d := range dates {
			fmt.Println(d)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := runner.Run(ctx, req)
	if err != nil && !errors.Is(err, stats.ErrEmptySeries) {
		return err
	}
	if err := report.WriteConsole(os.Stdout, res); err != nil {
		return err
	}

	if *out != "" {
		if err := writeFile(*out, func(f *os.File) error { return report.WriteCSV(f, res) }); err != nil {
			return err
		}
		fmt.Printf("%s updated.\n", *out)
	}
	if *svg != "" {
		err := writeFile(*svg, func(f *os.File) error {
			_, err := visualize.NewChart(res).Encode(f)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
