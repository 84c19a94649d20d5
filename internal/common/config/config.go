package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API      APIConfig
	Stations StationsConfig
	Events   EventsConfig
	Archive  ArchiveConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
	StateDir string
}

// APIConfig points at the remote ShareCycle platform. The base URL is
// environment-driven; the localhost default exists only for local dev and
// carries no contract.
type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// StationsConfig controls the station read-model poller.
type StationsConfig struct {
	PollInterval time.Duration
}

// EventsConfig controls the live event console and its stream.
type EventsConfig struct {
	Enabled        bool
	MaxEntries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AlertURL       string
}

// ArchiveConfig enables the optional Postgres event archive. The archive
// is off unless a database name is configured.
type ArchiveConfig struct {
	Host      string
	Port      string
	User      string
	Password  string
	DBName    string
	Retention time.Duration
}

type MetricsConfig struct {
	Addr string // empty disables the listener
}

type LoggingConfig struct {
	Level    string
	FilePath string
}

func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL:        getEnv("SHARECYCLE_API_URL", "http://localhost:8080/api"),
			RequestTimeout: getDurationEnv("SHARECYCLE_REQUEST_TIMEOUT", 15*time.Second),
		},
		Stations: StationsConfig{
			PollInterval: getDurationEnv("STATION_POLL_INTERVAL", 30*time.Second),
		},
		Events: EventsConfig{
			Enabled:        getBoolEnv("EVENTS_ENABLED", true),
			MaxEntries:     getIntEnv("EVENTS_MAX_ENTRIES", 300),
			InitialBackoff: getDurationEnv("EVENTS_RECONNECT_BACKOFF", time.Second),
			MaxBackoff:     getDurationEnv("EVENTS_RECONNECT_MAX_BACKOFF", time.Minute),
			AlertURL:       os.Getenv("EVENTS_ALERT_WEBHOOK_URL"),
		},
		Archive: ArchiveConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "5432"),
			User:      getEnv("DB_USER", "postgres"),
			Password:  getEnv("DB_PASSWORD", ""),
			DBName:    os.Getenv("DB_NAME"),
			Retention: getDurationEnv("ARCHIVE_RETENTION", 7*24*time.Hour),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
		Logging: LoggingConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnv("LOG_FILE", "sharecycle-console.log"),
		},
		StateDir: getEnv("STATE_DIR", defaultStateDir()),
	}

	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return nil, fmt.Errorf("SHARECYCLE_API_URL must not be empty")
	}
	if cfg.Events.MaxEntries <= 0 {
		return nil, fmt.Errorf("EVENTS_MAX_ENTRIES must be > 0")
	}

	return cfg, nil
}

// ArchiveEnabled reports whether the optional event archive is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.DBName != ""
}

func (a *ArchiveConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		a.Host, a.Port, a.User, a.Password, a.DBName)
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sharecycle"
	}
	return home + "/.sharecycle"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true")
	}
	return defaultValue
}
