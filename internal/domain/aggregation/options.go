package aggregation

import (
	"github.com/okian/fedagg/pkg/logger"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithConfig replaces the whole numeric configuration.
func WithConfig(cfg Config) Option {
	return func(a *Aggregator) {
		a.cfg = cfg
	}
}

// WithClippingNorm sets the per-client L2 ceiling. Zero disables clipping.
func WithClippingNorm(norm float64) Option {
	return func(a *Aggregator) {
		a.cfg.ClippingNorm = norm
	}
}

// WithNoiseStdDev sets the Gaussian noise standard deviation. Zero disables noise.
func WithNoiseStdDev(stddev float64) Option {
	return func(a *Aggregator) {
		a.cfg.NoiseStdDev = stddev
	}
}

// WithNoiseSource injects the generator used for noise samples.
func WithNoiseSource(src NoiseSource) Option {
	return func(a *Aggregator) {
		if src != nil {
			a.noise = src
		}
	}
}

// WithShards sets how many partitions the weighted sum is split into.
func WithShards(n int) Option {
	return func(a *Aggregator) {
		a.cfg.ShardCount = n
	}
}

// WithParallelThreshold sets the minimum client count for sharded summation.
func WithParallelThreshold(n int) Option {
	return func(a *Aggregator) {
		a.cfg.ParallelThreshold = n
	}
}

// WithLogger sets a custom logger for the aggregator.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}
