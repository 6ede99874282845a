// Package config loads posehold settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/posehold/internal/challenge"
	"github.com/ayusman/posehold/internal/pose"
)

// Environment variables read by Load.
const (
	EnvCamera      = "POSEHOLD_CAMERA"
	EnvFPS         = "POSEHOLD_FPS"
	EnvAddr        = "POSEHOLD_ADDR"
	EnvDataDir     = "POSEHOLD_DATA_DIR"
	EnvSequence    = "POSEHOLD_SEQUENCE"
	EnvPluginDir   = "POSEHOLD_PLUGIN_DIR"
	EnvHoldSeconds = "POSEHOLD_HOLD_SECONDS"
	EnvAutoAdvance = "POSEHOLD_AUTO_ADVANCE"
	EnvLogLevel    = "POSEHOLD_LOG_LEVEL"
)

// Config holds the runtime settings of the application.
type Config struct {
	CameraID int
	// FPS is the capture rate. Zero means the capture default.
	FPS      int
	Addr     string

	// DataDir holds the sqlite database and, by default, plugins.
	DataDir string

	// SequencePath is an optional YAML sequence file. Empty means the
	// built-in sequence.
	SequencePath string
	PluginDir    string

	HoldDuration time.Duration
	AutoAdvance  time.Duration

	Threshold float64
	Tolerance float64

	LogLevel string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	dataDir := ".posehold"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".posehold")
	}
	return Config{
		Addr:         ":8080",
		DataDir:      dataDir,
		PluginDir:    filepath.Join(dataDir, "plugins"),
		HoldDuration: challenge.DefaultHoldDuration,
		Threshold:    pose.DefaultThreshold,
		Tolerance:    pose.DefaultTolerance,
		LogLevel:     "info",
	}
}

// DBPath returns the location of the sqlite database.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "posehold.db")
}

// Load reads envFile (if it exists) into the process environment and
// returns DefaultConfig overridden by POSEHOLD_* variables.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv applies the variables returned by getenv on top of DefaultConfig.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if v := getenv(EnvCamera); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id < 0 {
			return Config{}, fmt.Errorf("%s: invalid camera id %q", EnvCamera, v)
		}
		cfg.CameraID = id
	}
	if v := getenv(EnvFPS); v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil || fps <= 0 {
			return Config{}, fmt.Errorf("%s: invalid frame rate %q", EnvFPS, v)
		}
		cfg.FPS = fps
	}
	if v := getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}

	if v := getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
		cfg.PluginDir = filepath.Join(v, "plugins")
	}
	if v := getenv(EnvPluginDir); v != "" {
		cfg.PluginDir = v
	}

	if v := getenv(EnvSequence); v != "" {
		cfg.SequencePath = v
	}

	if v := getenv(EnvHoldSeconds); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvHoldSeconds, err)
		}
		d, err := challenge.HoldSeconds(secs)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvHoldSeconds, err)
		}
		cfg.HoldDuration = d
	}

	if v := getenv(EnvAutoAdvance); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("%s: invalid duration %q", EnvAutoAdvance, v)
		}
		cfg.AutoAdvance = d
	}

	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}
