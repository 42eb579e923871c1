// Package config loads the counter's settings from the environment and
// command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/smartcity/vehicle-counter/internal/domain"
	"github.com/smartcity/vehicle-counter/internal/service"
	"github.com/smartcity/vehicle-counter/pkg/geometry"
)

// Config holds every runtime setting
type Config struct {
	Port string
	Env  string

	DatabaseURL string
	SQLitePath  string
	CSVLogPath  string

	LocationFile     string
	DefaultLocation  string
	LocationInterval time.Duration

	MLServiceURL string
	ReplayPath   string
	FramesDir    string

	Gate                string
	ConfidenceThreshold float64
	FrameSkip           int
	MaxRestartFailures  int
	MaxIdleFrames       uint64

	LogLevel string
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port:                "8080",
		Env:                 "development",
		SQLitePath:          "vehicle_data.db",
		CSVLogPath:          "vehicle_log.csv",
		LocationFile:        "current_camera_location.txt",
		DefaultLocation:     domain.DefaultLocations[0].ID,
		LocationInterval:    service.DefaultLocationInterval,
		MLServiceURL:        "http://localhost:8000",
		FramesDir:           "frames",
		Gate:                formatGate(domain.DefaultGate),
		ConfidenceThreshold: service.DefaultConfidenceThreshold,
		FrameSkip:           service.DefaultSkipFactor,
		MaxRestartFailures:  service.DefaultMaxRestartFailures,
		LogLevel:            "info",
	}
}

// Load reads .env when present, then the process environment. Unparseable
// numeric values keep their defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment")
	}

	d := Default()
	return &Config{
		Port:                getEnv("PORT", d.Port),
		Env:                 getEnv("GO_ENV", d.Env),
		DatabaseURL:         getEnv("DATABASE_URL", d.DatabaseURL),
		SQLitePath:          getEnv("SQLITE_PATH", d.SQLitePath),
		CSVLogPath:          getEnv("CSV_LOG_PATH", d.CSVLogPath),
		LocationFile:        getEnv("LOCATION_FILE", d.LocationFile),
		DefaultLocation:     getEnv("DEFAULT_LOCATION", d.DefaultLocation),
		LocationInterval:    getEnvDuration("LOCATION_INTERVAL", d.LocationInterval),
		MLServiceURL:        getEnv("ML_SERVICE_URL", d.MLServiceURL),
		ReplayPath:          getEnv("REPLAY_PATH", d.ReplayPath),
		FramesDir:           getEnv("FRAMES_DIR", d.FramesDir),
		Gate:                getEnv("GATE", d.Gate),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", d.ConfidenceThreshold),
		FrameSkip:           getEnvInt("FRAME_SKIP", d.FrameSkip),
		MaxRestartFailures:  getEnvInt("MAX_RESTART_FAILURES", d.MaxRestartFailures),
		MaxIdleFrames:       getEnvUint("MAX_IDLE_FRAMES", d.MaxIdleFrames),
		LogLevel:            getEnv("LOG_LEVEL", d.LogLevel),
	}
}

// AddFlags registers a flag per setting, defaulting to the loaded value
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Port, "port", c.Port, "HTTP listen port.")
	fs.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "PostgreSQL connection string. SQLite is used when empty.")
	fs.StringVar(&c.SQLitePath, "sqlite-path", c.SQLitePath, "SQLite database file.")
	fs.StringVar(&c.CSVLogPath, "csv-log", c.CSVLogPath, "CSV backup log of crossings. Disabled when empty.")
	fs.StringVar(&c.LocationFile, "location-file", c.LocationFile, "File holding the active location id.")
	fs.StringVar(&c.DefaultLocation, "default-location", c.DefaultLocation, "Location id used when the location file is missing.")
	fs.DurationVar(&c.LocationInterval, "location-interval", c.LocationInterval, "How often the location file is re-read.")
	fs.StringVar(&c.MLServiceURL, "ml-service-url", c.MLServiceURL, "Base URL of the detection and tracking service.")
	fs.StringVar(&c.ReplayPath, "replay", c.ReplayPath, "Recorded tracking output to replay instead of live frames.")
	fs.StringVar(&c.FramesDir, "frames-dir", c.FramesDir, "Directory of frame images sent to the tracking service.")
	fs.StringVar(&c.Gate, "gate", c.Gate, "Counting line as x1,y1,x2,y2 in pixels.")
	fs.Float64Var(&c.ConfidenceThreshold, "confidence", c.ConfidenceThreshold, "Detections at or below this confidence are ignored.")
	fs.IntVar(&c.FrameSkip, "frame-skip", c.FrameSkip, "Process one frame in every N.")
	fs.IntVar(&c.MaxRestartFailures, "max-restart-failures", c.MaxRestartFailures, "Consecutive failed source restarts before giving up.")
	fs.Uint64Var(&c.MaxIdleFrames, "max-idle-frames", c.MaxIdleFrames, "Forget track ids unseen for this many frames. 0 keeps them forever.")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: trace, debug, info, warn, error.")
}

// Validate clamps out of range values and reports settings the counter
// cannot start with
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.ParseGate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.DefaultLocation) == "" {
		errs = append(errs, errors.New("config: default location must not be empty"))
	}
	if c.LocationFile == "" {
		errs = append(errs, errors.New("config: location file must not be empty"))
	}

	c.ConfidenceThreshold = geometry.Clamp(c.ConfidenceThreshold, 0, 1)
	if c.FrameSkip < 1 {
		c.FrameSkip = 1
	}
	if c.MaxRestartFailures < 1 {
		c.MaxRestartFailures = 1
	}
	if c.LocationInterval <= 0 {
		c.LocationInterval = service.DefaultLocationInterval
	}

	return errors.Join(errs...)
}

// ParseGate returns the counting line
func (c *Config) ParseGate() (domain.Gate, error) {
	start, end, err := geometry.ParseSegment(c.Gate)
	if err != nil {
		return domain.Gate{}, fmt.Errorf("config: invalid gate %q: %w", c.Gate, err)
	}
	if start == end {
		return domain.Gate{}, fmt.Errorf("config: gate %q has zero length", c.Gate)
	}
	return domain.Gate{Start: start, End: end}, nil
}

// ParseLevel maps a level name to a fiber log level
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "", "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	default:
		return log.LevelInfo, fmt.Errorf("config: unknown log level %q", name)
	}
}

func formatGate(g domain.Gate) string {
	return fmt.Sprintf("%d,%d,%d,%d", g.Start.X, g.Start.Y, g.End.X, g.End.Y)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warnf("Ignoring %s=%q: %v", key, value, err)
		return defaultValue
	}
	return n
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		log.Warnf("Ignoring %s=%q: %v", key, value, err)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warnf("Ignoring %s=%q: %v", key, value, err)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warnf("Ignoring %s=%q: %v", key, value, err)
		return defaultValue
	}
	return d
}
