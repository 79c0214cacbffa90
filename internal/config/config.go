// Package config defines process configuration and its layered loading.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and environment variables over those defaults.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"math"
	"strings"
)

// Config contains process configuration shared by the server and the CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ClippingNorm is the per-client L2 ceiling. Zero disables clipping.
	ClippingNorm float64 `koanf:"clipping_norm"`

	// NoiseStdDev is the Gaussian output noise stddev. Zero disables noise.
	NoiseStdDev float64 `koanf:"noise_stddev"`

	// NoiseSeed makes noise reproducible when non-zero.
	NoiseSeed uint64 `koanf:"noise_seed"`

	// ShardCount splits the weighted sum across goroutines when > 1.
	ShardCount int `koanf:"shard_count"`

	// ParallelThreshold is the minimum client count for sharded summation.
	ParallelThreshold int `koanf:"parallel_threshold"`

	// MaxRequestBytes caps POST /aggregate bodies.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		ClippingNorm:      2.0,
		NoiseStdDev:       0,
		NoiseSeed:         0,
		ShardCount:        1,
		ParallelThreshold: 1024,
		MaxRequestBytes:   32 << 20,
	}
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if !nonNegativeFinite(c.ClippingNorm) {
		return fmt.Errorf("%w: clipping_norm must be a finite non-negative number", ErrInvalidConfig)
	}
	if !nonNegativeFinite(c.NoiseStdDev) {
		return fmt.Errorf("%w: noise_stddev must be a finite non-negative number", ErrInvalidConfig)
	}
	if c.ShardCount < 1 {
		return fmt.Errorf("%w: shard_count must be at least 1", ErrInvalidConfig)
	}
	if c.ParallelThreshold < 0 {
		return fmt.Errorf("%w: parallel_threshold must not be negative", ErrInvalidConfig)
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("%w: max_request_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}

func nonNegativeFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
