// Package config reads the server's settings from the environment.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/ironsheep/image-margin-mcp/internal/imaging"
)

// Environment variable names.
const (
	EnvLogLevel    = "IMAGE_MARGIN_LOG_LEVEL"
	EnvThreshold   = "IMAGE_MARGIN_THRESHOLD"
	EnvWorkers     = "IMAGE_MARGIN_WORKERS"
	EnvJPEGQuality = "IMAGE_MARGIN_JPEG_QUALITY"
)

// Config holds runtime settings. The zero value is not useful; use Default or
// Load.
type Config struct {
	// Debug enables verbose logging to stderr.
	Debug bool

	// Threshold is the margin brightness threshold used when a request does
	// not give one.
	Threshold int

	// Workers bounds how many images a batch processes at once.
	Workers int

	// JPEGQuality is the quality used when re-encoding JPEG output.
	JPEGQuality int
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Threshold:   imaging.DefaultThreshold,
		Workers:     runtime.NumCPU(),
		JPEGQuality: imaging.DefaultJPEGQuality,
	}
}

// Load returns Default overridden by any IMAGE_MARGIN_* variables that are set.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()

	cfg.Debug = strings.EqualFold(getenv(EnvLogLevel), "debug")

	if v := getenv(EnvThreshold); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvThreshold, err)
		}
		cfg.Threshold = n
	}
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		cfg.Workers = n
	}
	if v := getenv(EnvJPEGQuality); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvJPEGQuality, err)
		}
		cfg.JPEGQuality = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field is in range.
func (c Config) Validate() error {
	if err := imaging.ValidateThreshold(c.Threshold); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be 1-100, got %d", c.JPEGQuality)
	}
	return nil
}
