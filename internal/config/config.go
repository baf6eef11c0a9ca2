package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the tailer agent
type Config struct {
	// Watch settings
	WatchPaths []string // Glob patterns to tail
	Exclude    []string // Base-name patterns to skip

	// Checkpoint settings
	SincedbPath          string        // Path to the persisted offset file
	SincedbWriteInterval time.Duration // Minimum time between automatic flushes
	CheckpointBackend    string        // "file" or "bolt"

	// Discovery cadences (forwarded to the watcher)
	StatInterval     time.Duration
	DiscoverInterval time.Duration

	// Open-failure warning suppression
	OpenWarnInterval time.Duration

	// Observability
	LogLevel       string
	LogFile        string
	TracingEnabled bool
	OTLPProtocol   string
	OTLPEndpoint   string
}

// Load loads configuration from environment variables, merging in the
// optional YAML watch list named by CONFIG_PATH
func Load() (*Config, error) {
	cfg := &Config{
		WatchPaths: parsePathList(getEnv("WATCH_PATHS", "")),
		Exclude:    parsePathList(getEnv("EXCLUDE", "")),

		SincedbPath:          getEnv("SINCEDB_PATH", defaultSincedbPath()),
		SincedbWriteInterval: getEnvSeconds("SINCEDB_WRITE_INTERVAL", 10),
		CheckpointBackend:    getEnv("CHECKPOINT_BACKEND", "file"),

		StatInterval:     getEnvSeconds("STAT_INTERVAL", 1),
		DiscoverInterval: getEnvSeconds("DISCOVER_INTERVAL", 5),

		OpenWarnInterval: getEnvSeconds("FILETAIL_OPEN_WARN_INTERVAL", 300),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPProtocol:   getEnv("OTLP_PROTOCOL", "grpc"),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
	}

	if path := getEnv("CONFIG_PATH", ""); path != "" {
		wl, err := LoadWatchList(path)
		if err != nil {
			return nil, err
		}
		cfg.WatchPaths = append(cfg.WatchPaths, wl.Paths...)
		cfg.Exclude = append(cfg.Exclude, wl.Exclude...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.WatchPaths) == 0 {
		return fmt.Errorf("WATCH_PATHS (or a CONFIG_PATH watch list) is required")
	}
	if c.SincedbPath == "" {
		return fmt.Errorf("SINCEDB_PATH is required")
	}
	if c.CheckpointBackend != "file" && c.CheckpointBackend != "bolt" {
		return fmt.Errorf("CHECKPOINT_BACKEND must be 'file' or 'bolt'")
	}
	if c.SincedbWriteInterval <= 0 {
		return fmt.Errorf("SINCEDB_WRITE_INTERVAL must be positive")
	}
	if c.StatInterval <= 0 || c.DiscoverInterval <= 0 {
		return fmt.Errorf("STAT_INTERVAL and DISCOVER_INTERVAL must be positive")
	}

	return nil
}

// defaultSincedbPath derives the sincedb location from the home directory
func defaultSincedbPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".filetail_sincedb")
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvSeconds gets an integer environment variable interpreted as seconds
func getEnvSeconds(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return time.Duration(intValue) * time.Second
		}
	}
	return time.Duration(defaultValue) * time.Second
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// parsePathList parses a semicolon-separated list of paths
func parsePathList(pathsStr string) []string {
	if pathsStr == "" {
		return nil
	}

	paths := strings.Split(pathsStr, ";")
	result := make([]string, 0, len(paths))

	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
