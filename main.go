package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spencer-p/springtides/pkg/cache"
	"github.com/spencer-p/springtides/pkg/config"
	"github.com/spencer-p/springtides/pkg/handlers"
	"github.com/spencer-p/springtides/pkg/log"
	"github.com/spencer-p/springtides/pkg/metrics"
	"github.com/spencer-p/springtides/pkg/springtide"
)

func main() {
	env, err := config.Load()
	if err != nil {
		log.Fatal(err.Error())
	}
	if err := log.Init(env.Debug); err != nil {
		log.Fatal(err.Error())
	}
	defer log.Sync()

	runner, closeSinks, err := springtide.FromConfig(env)
	if err != nil {
		log.Fatalf("Failed to set up: %v", err)
	}
	defer closeSinks()

	stations, err := springtide.LoadStations(env)
	if err != nil {
		log.Fatalf("Failed to load stations: %v", err)
	}

	server := &handlers.Server{
		Runner:       runner,
		Stations:     stations,
		MaxRangeDays: env.MaxRangeDays,
		Sessions:     handlers.NewSessions(env.SessionKey, env.EncryptionKey),
	}
	if env.CacheTTL > 0 {
		// cache for slightly less than one day so daily clients don't see
		// stale data
		server.Cache = cache.NewTimed(env.CacheTTL)
	}

	r := mux.NewRouter().StrictSlash(true)
	r.Use(metrics.LatencyHandler)
	r.Handle("/metrics", promhttp.Handler())
	s := r.PathPrefix(env.Prefix).Subrouter()
	handlers.Register(s, server)

	srv := &http.Server{
		Handler:      r,
		Addr:         "0.0.0.0:" + env.Port,
		WriteTimeout: 2 * time.Minute,
		ReadTimeout:  15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorw("shutdown", "error", err)
		}
	}()

	log.Infow("listening", "addr", srv.Addr, "prefix", env.Prefix)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorw("server stopped", "error", err)
	}
}
