package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/trigo/dispatch/internal/config"
	"github.com/trigo/dispatch/internal/dispatch"
	httpapi "github.com/trigo/dispatch/internal/http"
	"github.com/trigo/dispatch/internal/ingest"
	"github.com/trigo/dispatch/internal/insight"
	"github.com/trigo/dispatch/internal/logging"
	"github.com/trigo/dispatch/internal/matcher"
	"github.com/trigo/dispatch/internal/registry"
	"github.com/trigo/dispatch/internal/routing"
	"github.com/trigo/dispatch/internal/settings"
	"github.com/trigo/dispatch/internal/sim"
	"github.com/trigo/dispatch/internal/storage"
	"github.com/trigo/dispatch/internal/zones"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// math/rand.Rand is not safe for concurrent use; each simulator goroutine
	// gets its own generator derived from the master seed
	seedRng := rand.New(rand.NewSource(seed))
	motionRng := rand.New(rand.NewSource(seed + 1))
	demandRng := rand.New(rand.NewSource(seed + 2))
	insightRng := rand.New(rand.NewSource(seed + 3))

	zoneReg := zones.NewRegistry(zones.Seed())
	triders := registry.NewTriderStore()
	triders.Seed(registry.SeedTriders(zoneReg.All(), 3, seedRng))
	rides := registry.NewRideStore()
	insights := registry.NewInsightLog()

	// optional Redis: settings persistence
	var settingsStore *settings.Store
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		settingsStore = settings.NewStore(&settings.RedisKV{Client: rc}, settings.DefaultDebounce, logging.ForComponent(logger, "settings"))
	} else {
		logger.Info("no REDIS_ADDR; settings persistence disabled")
	}

	// persisted intervals win over env defaults, matching what the operator
	// last saved in the settings UI
	if settingsStore != nil {
		var app settings.AppSettings
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := settingsStore.Get(ctx, settings.KeyAppSettings, &app); err == nil {
			if app.TriderUpdateIntervalMs > 0 {
				cfg.TriderUpdateInterval = time.Duration(app.TriderUpdateIntervalMs) * time.Millisecond
			}
			if app.RideRequestIntervalMs > 0 {
				cfg.RideRequestInterval = time.Duration(app.RideRequestIntervalMs) * time.Millisecond
			}
			if app.AIInsightIntervalMs > 0 {
				cfg.AIInsightInterval = time.Duration(app.AIInsightIntervalMs) * time.Millisecond
			}
		} else if !errors.Is(err, settings.ErrNotFound) {
			logger.Warn("settings load failed", "error", err)
		}
		cancel()
	}

	// optional Postgres: durable request archive
	var archive storage.RequestArchive
	if cfg.PGDSN != "" {
		if cfg.RunMigrations {
			runMigrations(cfg.PGDSN, logger)
		}
		if pa, err := storage.NewPostgresArchive(cfg.PGDSN); err == nil {
			archive = pa
		} else {
			logger.Warn("postgres archive unavailable, using memory", "error", err)
		}
	}
	if archive == nil {
		archive = storage.NewMemoryArchive()
	}

	// optional Kafka: trider location telemetry
	var publisher sim.LocationPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	feed := dispatch.NewFeedHub(logging.ForComponent(logger, "feed"))

	var insightGen insight.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := insight.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn("gemini unavailable, using template insights", "error", err)
		} else {
			defer g.Close()
			insightGen = g
		}
	}
	if insightGen == nil {
		insightGen = insight.NewTemplateGenerator(insightRng)
	}

	fares := sim.FareTable{
		DefaultBase:    cfg.DefaultBaseFare,
		PerKm:          cfg.PerKmCharge,
		ConvenienceFee: cfg.ConvenienceFee,
	}

	motion := sim.NewMotionSimulator(cfg.TriderUpdateInterval, triders, rides, zoneReg,
		sim.NewSimulatedLocations(motionRng), publisher, feed, logging.ForComponent(logger, "motion"))
	demand := sim.NewDemandGenerator(cfg.RideRequestInterval, rides, zoneReg, fares,
		archive, demandRng, feed, logging.ForComponent(logger, "demand"))
	insightTicker := sim.NewInsightTicker(cfg.AIInsightInterval, insightGen, insights,
		triders, rides, zoneReg, feed, logging.ForComponent(logger, "insight"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go motion.Run(ctx)
	go demand.Run(ctx)
	go insightTicker.Run(ctx)

	directions := routing.NewClient(cfg.DirectionsEndpoint, cfg.DirectionsProfile, cfg.DirectionsToken)
	if cfg.DirectionsToken == "" {
		logger.Warn("DIRECTIONS_TOKEN not set; route display will be unavailable")
	}

	srv := httpapi.NewServer(httpapi.Deps{
		Zones:    zoneReg,
		Triders:  triders,
		Rides:    rides,
		Insights: insights,
		Matcher:  matcher.NewService(triders, rides),
		Routes:   routing.NewFetcher(directions),
		Feed:     feed,
		Settings: settingsStore,
		Archive:  archive,
		Sims:     httpapi.Simulators{Motion: motion, Demand: demand, Insight: insightTicker},
		Fares:    &fares,
		Logger:   logging.ForComponent(logger, "http"),
	})

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("trigo dispatch listening", "addr", cfg.HTTPAddr, "zones", zoneReg.Count(), "seed", seed)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if settingsStore != nil {
		if err := settingsStore.Flush(shutdownCtx); err != nil {
			logger.Error("settings flush failed", "error", err)
		}
	}
}

func runMigrations(dsn string, logger *slog.Logger) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("migration db open failed", "error", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_ride_requests.sql"))
	if err != nil {
		logger.Error("migration read failed", "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logger.Error("migration exec failed", "error", err)
		return
	}
	logger.Info("migration applied", "file", "001_create_ride_requests.sql")
}
