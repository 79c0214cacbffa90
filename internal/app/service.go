// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/okian/fedagg/internal/config"
	"github.com/okian/fedagg/internal/domain/aggregation"
	"github.com/okian/fedagg/internal/domain/model"
	"github.com/okian/fedagg/pkg/logger"
	"github.com/okian/fedagg/pkg/metrics"
)

// ErrNotStarted is returned when Aggregate is called before Start.
var ErrNotStarted = errors.New("service not started")

// Request is one aggregation call. Nil overrides fall back to the service
// configuration.
type Request struct {
	RoundID      string
	Updates      []model.ClientUpdate
	ClippingNorm *float64
	NoiseStdDev  *float64
}

// lastRound describes the most recent successful aggregation.
type lastRound struct {
	roundID string
	clients int
	dim     int
	hash    string
}

// Service implements the API dependencies for the aggregation server.
type Service struct {
	mu sync.RWMutex

	// Core components
	aggregator *aggregation.Aggregator
	noise      aggregation.NoiseSource

	// Configuration
	cfg *config.Config

	// State
	started      bool
	aggregations atomic.Int64
	failures     atomic.Int64
	last         atomic.Pointer[lastRound]

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the process configuration used to build the aggregator.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithNoiseSource overrides the noise generator derived from noise_seed.
func WithNoiseSource(src aggregation.NoiseSource) Option {
	return func(s *Service) {
		s.noise = src
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(),
		logger: nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start validates the configuration and builds the aggregator.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.GetOr(logger.Nop()).Named("service")
	}

	if s.noise == nil {
		s.noise = aggregation.DefaultNoiseSource()
		if s.cfg.NoiseSeed != 0 {
			s.noise = aggregation.NewSeededSource(s.cfg.NoiseSeed)
		}
	}

	agg, err := s.build(s.cfg.ClippingNorm, s.cfg.NoiseStdDev)
	if err != nil {
		metrics.RecordErrorByComponent("service", "invalid_config")
		return err
	}
	s.aggregator = agg

	s.started = true
	s.logger.Info(ctx, "aggregation service started",
		logger.Float64("clippingNorm", s.cfg.ClippingNorm),
		logger.Float64("noiseStdDev", s.cfg.NoiseStdDev),
		logger.Bool("seededNoise", s.cfg.NoiseSeed != 0),
		logger.Int("shardCount", s.cfg.ShardCount),
		logger.Int("parallelThreshold", s.cfg.ParallelThreshold),
	)
	return nil
}

// Stop marks the service as stopped. In-flight calls complete normally.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.aggregator = nil
	s.logger.Info(context.Background(), "aggregation service stopped")
}

// Aggregate runs one aggregation with the service configuration, applying
// any per-request clipping or noise overrides.
func (s *Service) Aggregate(ctx context.Context, req Request) (model.AggregatedModel, error) {
	s.mu.RLock()
	agg, started := s.aggregator, s.started
	s.mu.RUnlock()

	if !started {
		return model.AggregatedModel{}, ErrNotStarted
	}

	if req.ClippingNorm != nil || req.NoiseStdDev != nil {
		clip, noise := s.cfg.ClippingNorm, s.cfg.NoiseStdDev
		if req.ClippingNorm != nil {
			clip = *req.ClippingNorm
		}
		if req.NoiseStdDev != nil {
			noise = *req.NoiseStdDev
		}
		var err error
		if agg, err = s.build(clip, noise); err != nil {
			s.failures.Add(1)
			metrics.RecordAggregationError(aggregation.Kind(err))
			return model.AggregatedModel{}, err
		}
	}

	out, err := agg.Aggregate(ctx, req.Updates)
	if err != nil {
		s.failures.Add(1)
		s.logger.Warn(ctx, "aggregation failed",
			logger.String("roundId", req.RoundID),
			logger.Error(err),
		)
		return model.AggregatedModel{}, err
	}

	s.aggregations.Add(1)
	s.last.Store(&lastRound{
		roundID: req.RoundID,
		clients: out.NumClients,
		dim:     len(out.Weights),
		hash:    out.ModelHash,
	})
	s.logger.Info(ctx, "round aggregated",
		logger.String("roundId", req.RoundID),
		logger.Int("clients", out.NumClients),
		logger.String("modelHash", out.ModelHash),
	)
	return out, nil
}

func (s *Service) build(clip, noise float64) (*aggregation.Aggregator, error) {
	return aggregation.New(
		aggregation.WithClippingNorm(clip),
		aggregation.WithNoiseStdDev(noise),
		aggregation.WithNoiseSource(s.noise),
		aggregation.WithShards(s.cfg.ShardCount),
		aggregation.WithParallelThreshold(s.cfg.ParallelThreshold),
		aggregation.WithLogger(s.logger.Named("aggregator")),
	)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"clippingNorm":      s.cfg.ClippingNorm,
		"noiseStdDev":       s.cfg.NoiseStdDev,
		"shardCount":        s.cfg.ShardCount,
		"parallelThreshold": s.cfg.ParallelThreshold,
		"aggregations":      s.aggregations.Load(),
		"failures":          s.failures.Load(),
	}

	if last := s.last.Load(); last != nil {
		stats["lastRoundId"] = last.roundID
		stats["lastClients"] = last.clients
		stats["lastDimension"] = last.dim
		stats["lastModelHash"] = last.hash
	}

	return stats
}

// MaxRequestBytes returns the configured cap on request bodies.
func (s *Service) MaxRequestBytes() int64 {
	return s.cfg.MaxRequestBytes
}
