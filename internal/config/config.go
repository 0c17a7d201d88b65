// Package config provides configuration management for the Reelcut Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8690
	DefaultLogLevel = "info"
	DefaultDataDir  = ".reelcut"

	// Environment variable names
	EnvPort     = "REELCUT_PORT"
	EnvLogLevel = "REELCUT_LOG_LEVEL"
	EnvDataDir  = "REELCUT_DATA_DIR"
	EnvHeadless = "REELCUT_HEADLESS"

	// Engine environment variable names
	EnvFFmpegPath  = "REELCUT_FFMPEG_PATH"
	EnvFFprobePath = "REELCUT_FFPROBE_PATH"

	// Database filename
	DBFilename = "reelcut.db"

	// Engine defaults
	DefaultFFmpegPath    = "ffmpeg"
	DefaultFFprobePath   = "ffprobe"
	DefaultRenderTimeout = 1800 // seconds
	DefaultProbeTimeout  = 30   // seconds
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	RenderDir() string
	Headless() bool
	FFmpegPath() string
	FFprobePath() string
	RenderTimeout() time.Duration
	ProbeTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	headless bool

	ffmpegPath  string
	ffprobePath string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpegPath)
	cfg.ffprobePath = os.Getenv(EnvFFprobePath)

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// RenderDir returns the directory for staged and finished render outputs
func (c *EnvConfig) RenderDir() string {
	return filepath.Join(c.dataDir, "renders")
}

// Headless reports whether the agent runs without local preview serving
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) FFmpegPath() string {
	if c.ffmpegPath != "" {
		return c.ffmpegPath
	}
	return DefaultFFmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	if c.ffprobePath != "" {
		return c.ffprobePath
	}
	return DefaultFFprobePath
}

func (c *EnvConfig) RenderTimeout() time.Duration {
	return time.Duration(DefaultRenderTimeout) * time.Second
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return time.Duration(DefaultProbeTimeout) * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
