package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/smartcity/vehicle-counter/internal/config"
	"github.com/smartcity/vehicle-counter/internal/delivery/http"
	"github.com/smartcity/vehicle-counter/internal/domain"
	"github.com/smartcity/vehicle-counter/internal/repository/csvlog"
	"github.com/smartcity/vehicle-counter/internal/repository/memory"
	"github.com/smartcity/vehicle-counter/internal/repository/postgres"
	"github.com/smartcity/vehicle-counter/internal/repository/sqlite"
	"github.com/smartcity/vehicle-counter/internal/service"
	"github.com/smartcity/vehicle-counter/internal/source"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:          "vehicle-counter",
		Short:        "Count vehicles crossing a virtual line in a tracked video stream",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}
	cfg.AddFlags(cmd.Flags())

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	level, _ := config.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	// Event sinks
	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	sinks := []service.EventSink{store}
	if cfg.CSVLogPath != "" {
		csv, err := csvlog.Open(cfg.CSVLogPath)
		if err != nil {
			log.Warnf("CSV backup log disabled: %v", err)
		} else {
			sinks = append(sinks, csv)
		}
	}
	sink := service.NewMultiSink(sinks...)
	defer func() {
		if err := sink.Close(); err != nil {
			log.Errorf("Failed to close event sinks: %v", err)
		}
	}()

	// Location context
	locationFile := source.NewLocationFile(cfg.LocationFile)
	if err := locationFile.EnsureDefault(cfg.DefaultLocation); err != nil {
		log.Warnf("Could not initialize location file: %v", err)
	}
	location := service.NewLocationProvider(ctx, locationFile, nil, cfg.LocationInterval, cfg.DefaultLocation)

	// Counting
	gate, err := cfg.ParseGate()
	if err != nil {
		return err
	}
	engine := service.NewEngine(service.EngineConfig{
		Gate:                gate,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxIdleFrames:       cfg.MaxIdleFrames,
	}, nil, sink, location, nil)

	frames, tracker, err := openFrames(cfg)
	if err != nil {
		return err
	}
	runner := service.NewRunner(service.RunnerConfig{
		SkipFactor:         cfg.FrameSkip,
		MaxRestartFailures: cfg.MaxRestartFailures,
	}, frames, tracker, engine, location, nil)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:               "Vehicle Counter v1.0",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          http.ErrorHandler,
		DisableStartupMessage: cfg.Env == "production",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,PUT,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	catalog := service.NewCatalog(domain.DefaultLocations)
	http.SetupRoutes(app, http.NewHandler(engine, runner, location, locationFile, catalog, store))

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Server starting on :%s", cfg.Port)
		serverErr <- app.Listen(":" + cfg.Port)
	}()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	runErr := make(chan error, 1)
	go func() {
		runErr <- runner.Run(runCtx)
	}()

	var exitErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
		cancelRun()
		<-runErr
	case err := <-runErr:
		if err != nil {
			log.Errorf("Vehicle detection stopped: %v", err)
			exitErr = err
		}
	case err := <-serverErr:
		log.Errorf("Server error: %v", err)
		exitErr = err
		cancelRun()
		<-runErr
	}

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	c := engine.Counters()
	log.Infof("Final counts: %d cars, %d motorcycles, %d trucks, %d buses",
		c.Cars, c.Motorcycles, c.Trucks, c.Buses)

	return exitErr
}

type eventStore interface {
	service.EventSink
	http.HealthChecker
}

// openStore prefers PostgreSQL when configured, then SQLite, then memory
func openStore(ctx context.Context, cfg *config.Config) (eventStore, func()) {
	if cfg.DatabaseURL != "" {
		repo, pool, err := openPostgres(ctx, cfg.DatabaseURL)
		if err == nil {
			log.Info("Connected to PostgreSQL")
			return repo, pool.Close
		}
		log.Warnf("Could not connect to PostgreSQL: %v", err)
	}

	repo, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err == nil {
		// Closed with the other sinks
		log.Infof("Storing events in SQLite at %s", cfg.SQLitePath)
		return repo, func() {}
	}
	log.Warnf("Could not open SQLite database: %v", err)
	log.Warn("Events will only be kept in memory")

	return memory.NewRepository(), func() {}
}

func openPostgres(ctx context.Context, url string) (*postgres.PostgresRepository, *pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	repo := postgres.NewPostgresRepository(pool)
	if err := repo.Migrate(); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repo, pool, nil
}

// openFrames replays recorded tracker output when a recording is given,
// otherwise sends frame images to the tracking service
func openFrames(cfg *config.Config) (domain.FrameSource, domain.Tracker, error) {
	if cfg.ReplayPath != "" {
		src, err := source.NewReplaySource(cfg.ReplayPath)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("Replaying %d recorded frames from %s", src.Len(), cfg.ReplayPath)
		return src, service.ReplayTracker{}, nil
	}

	if cfg.FramesDir == "" {
		return nil, nil, errors.New("no frame source: set REPLAY_PATH or FRAMES_DIR")
	}
	src, err := source.NewDirectorySource(cfg.FramesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open frames: %w", err)
	}

	bridge := service.NewMLBridge(cfg.MLServiceURL)
	if err := bridge.Health(context.Background()); err != nil {
		log.Warnf("Tracking service not reachable yet: %v", err)
	}
	return src, bridge, nil
}
