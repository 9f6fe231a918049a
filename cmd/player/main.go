package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Uschl/video-player/internal/platform/config"
	"github.com/Uschl/video-player/internal/platform/logger"
	"github.com/Uschl/video-player/internal/platform/metrics"
	"github.com/Uschl/video-player/internal/player"
	"github.com/Uschl/video-player/internal/player/sim"

	"github.com/go-chi/chi/v5"
)

const (
	shutdownTimeout = 10 * time.Second
	stepInterval    = 100 * time.Millisecond
)

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	syncInterval := config.GetEnvDuration("SYNC_INTERVAL", player.DefaultSyncInterval)
	driftThreshold := config.GetEnvFloat("DRIFT_THRESHOLD", player.DefaultDriftThreshold)
	simDuration := config.GetEnvFloat("SIM_DURATION", 120)
	simBandwidth := config.GetEnvFloat("SIM_BANDWIDTH", 2.5)

	log := logger.New(logLevel, logFormat)

	store := player.NewMemoryState()
	met := metrics.New()
	engine := player.NewEngine(store, log,
		player.WithSyncInterval(syncInterval),
		player.WithDriftThreshold(driftThreshold),
		player.WithMetrics(met))
	defer engine.Close()

	store.OnChange(func(snap player.Snapshot) {
		met.SetPosition(snap.Position)
	})

	session := player.NewSession(store, engine)

	// Two simulated streams: the primary (master) and a fallback that
	// downloads slightly slower, so stalls and drift correction actually
	// happen during a demo run.
	primary := sim.New("primary", simDuration, simBandwidth, engine.Dispatch)
	fallback := sim.New("fallback", simDuration, simBandwidth*0.8, engine.Dispatch)
	session.Attach(primary)
	session.Attach(fallback)

	stepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(stepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stepDone:
				return
			case <-ticker.C:
				playing := store.Snapshot().PlayState == player.StatePlaying
				dt := stepInterval.Seconds()
				primary.Step(dt, playing)
				fallback.Step(dt, playing)
			}
		}
	}()
	defer close(stepDone)

	h := player.NewHandler(session, log)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetWaitingElements(engine.WaitingCount()) }).ServeHTTP(w, r)
	})
	r.Route("/player", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/play", h.Play)
		r.Post("/pause", h.Pause)
		r.Post("/seek", h.Seek)
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("player starting",
		"port", port,
		"sync_interval", syncInterval.String(),
		"drift_threshold", driftThreshold,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("player stopped")
}
