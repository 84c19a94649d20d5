package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sharecycle-console/internal/api"
	"github.com/sharecycle-console/internal/auth"
	"github.com/sharecycle-console/internal/common/alert"
	"github.com/sharecycle-console/internal/common/config"
	"github.com/sharecycle-console/internal/common/db"
	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/internal/events"
	"github.com/sharecycle-console/internal/localstore"
	"github.com/sharecycle-console/internal/ride"
	"github.com/sharecycle-console/internal/stations"
)

func main() {
	// Load .env file if it exists; a missing file is fine, the
	// environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.FilePath = cfg.Logging.FilePath
	log := logger.New(logCfg)

	log.Info("ShareCycle console starting",
		"version", "1.0.0",
		"log_level", cfg.Logging.Level,
		"api_url", cfg.API.BaseURL,
		"events_enabled", cfg.Events.Enabled,
	)

	// Local persisted state: session and active-trip records.
	store, err := localstore.New(cfg.StateDir)
	if err != nil {
		log.Fatal("Failed to open state directory", "error", err)
	}
	sessionStore := localstore.NewSessionStore(store)
	tripStore := localstore.NewTripStore(store)

	// Auth store restores any persisted session; the API client reads
	// its token on every request.
	sessions := auth.NewStore(sessionStore, nil, tripStore, log)
	client := api.NewClient(cfg.API.BaseURL, cfg.API.RequestTimeout, sessions, log)
	gateway := api.NewGateway(client)
	sessions.SetAPI(gateway)

	consumer := stations.NewConsumer(gateway, log)
	controller := ride.NewController(gateway, consumer, tripStore, sessions, log)
	controller.Subscribe(func(state ride.State) {
		log.Debug("Ride state changed",
			"pending", string(state.Pending),
			"countdown", state.Countdown,
			"feedback", state.Feedback,
		)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// A restored session may still hold a live reservation server-side.
	if sessions.Snapshot().SignedIn() {
		controller.RefreshReservation(ctx)
	}

	var wg sync.WaitGroup

	// Station read-model poller
	poller := stations.NewPoller(consumer, cfg.Stations.PollInterval, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := poller.Start(ctx); err != nil {
			log.Error("Station poller error", "error", err)
		}
	}()

	// Live event console (if enabled)
	if cfg.Events.Enabled {
		startEvents(ctx, cfg, gateway, sessions, log, &wg)
	} else {
		log.Info("Event console disabled")
	}

	// Prometheus listener (if configured)
	if cfg.Metrics.Addr != "" {
		startMetrics(ctx, cfg.Metrics.Addr, log, &wg)
	}

	<-sigChan
	log.Info("Shutdown signal received")

	cancel()
	wg.Wait()

	log.Info("ShareCycle console stopped")
}

// startEvents wires the SSE stream into the bounded console, the
// optional Postgres archive and the optional disconnect webhook.
func startEvents(ctx context.Context, cfg *config.Config, gateway *api.Gateway, sessions *auth.Store, log logger.Logger, wg *sync.WaitGroup) {
	console := events.NewConsole(cfg.Events.MaxEntries)

	// Seed from the REST snapshot so the console is not empty until the
	// first live event arrives.
	if snapshot, err := gateway.Events(ctx); err == nil {
		console.Merge(snapshot)
	} else {
		log.Debug("Event snapshot fetch failed", "error", err)
	}

	var archiveCh chan string
	if cfg.ArchiveEnabled() {
		database, err := db.New(cfg.Archive.ConnectionString(), log)
		if err != nil {
			log.Error("Failed to connect to archive database", "error", err)
		} else {
			archive := events.NewArchive(database, cfg.Archive.Retention, log)
			archiveCh = make(chan string, 256)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer database.Close()
				if err := archive.Start(ctx, archiveCh); err != nil {
					log.Error("Event archive error", "error", err)
				}
			}()
		}
	}

	alerts := alert.NewClient(cfg.Events.AlertURL)

	stream := events.NewStream(events.StreamConfig{
		BaseURL:        cfg.API.BaseURL,
		InitialBackoff: cfg.Events.InitialBackoff,
		MaxBackoff:     cfg.Events.MaxBackoff,
	}, sessions, log)

	onEvent := func(payload string) {
		console.Push(payload)
		if archiveCh != nil {
			select {
			case archiveCh <- payload:
			default:
				log.Warn("Event archive channel full, dropping event")
			}
		}
	}
	onState := func(connected bool) {
		console.SetConnected(connected)
		if !connected && alerts.Enabled() {
			if err := alerts.Send("Event stream disconnected", "The live event stream lost its connection and is reconnecting."); err != nil {
				log.Warn("Failed to send stream alert", "error", err)
			}
		}
	}

	cancelStream, err := stream.Subscribe(ctx, onEvent, onState)
	if err != nil {
		log.Error("Failed to start event stream", "error", err)
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		cancelStream()
	}()
}

func startMetrics(ctx context.Context, addr string, log logger.Logger, wg *sync.WaitGroup) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	log.Info("Starting metrics listener", "addr", addr)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics listener error", "error", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
}
