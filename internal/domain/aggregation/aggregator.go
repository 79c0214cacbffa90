// Package aggregation implements norm-bounded federated averaging: per-client
// L2 clipping, example-count-weighted averaging, optional Gaussian output
// noise and a canonical digest of the result.
//
// An Aggregator holds only immutable configuration. Every call allocates its
// own working vectors, so one Aggregator may serve concurrent calls.
package aggregation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/fedagg/internal/domain/dedupe"
	"github.com/okian/fedagg/internal/domain/digest"
	"github.com/okian/fedagg/internal/domain/model"
	"github.com/okian/fedagg/pkg/logger"
	"github.com/okian/fedagg/pkg/metrics"
)

// Default configuration constants.
const (
	DefaultClippingNorm      = 2.0
	DefaultNoiseStdDev       = 0.0
	DefaultShardCount        = 1
	DefaultParallelThreshold = 1024
)

// Config holds the numeric parameters of one aggregation.
type Config struct {
	// ClippingNorm is the L2 ceiling per client vector; 0 disables clipping.
	ClippingNorm float64
	// NoiseStdDev is the stddev of per-coordinate output noise; 0 disables it.
	NoiseStdDev float64
	// ShardCount > 1 enables concurrent partial sums.
	ShardCount int
	// ParallelThreshold is the minimum number of clients before sharding.
	ParallelThreshold int
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if math.IsNaN(c.ClippingNorm) || math.IsInf(c.ClippingNorm, 0) || c.ClippingNorm < 0 {
		return fmt.Errorf("%w: clipping_norm must be a finite non-negative number, got %v", ErrInvalidConfig, c.ClippingNorm)
	}
	if math.IsNaN(c.NoiseStdDev) || math.IsInf(c.NoiseStdDev, 0) || c.NoiseStdDev < 0 {
		return fmt.Errorf("%w: noise_stddev must be a finite non-negative number, got %v", ErrInvalidConfig, c.NoiseStdDev)
	}
	return nil
}

// Aggregator runs the validate, clip, average, noise and digest pipeline.
type Aggregator struct {
	cfg    Config
	noise  NoiseSource
	logger logger.Logger
}

// New builds an Aggregator. It fails with ErrInvalidConfig on negative or
// non-finite clipping or noise parameters.
func New(opts ...Option) (*Aggregator, error) {
	a := &Aggregator{
		cfg: Config{
			ClippingNorm:      DefaultClippingNorm,
			NoiseStdDev:       DefaultNoiseStdDev,
			ShardCount:        DefaultShardCount,
			ParallelThreshold: DefaultParallelThreshold,
		},
		noise:  DefaultNoiseSource(),
		logger: logger.GetOr(logger.Nop()).Named("aggregator"),
	}

	for _, opt := range opts {
		opt(a)
	}

	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Config returns a copy of the aggregator's configuration.
func (a *Aggregator) Config() Config {
	return a.cfg
}

// Aggregate runs the full pipeline and returns the aggregate with its digest.
func (a *Aggregator) Aggregate(ctx context.Context, updates []model.ClientUpdate) (model.AggregatedModel, error) {
	start := time.Now()

	weights, err := a.AggregateWeights(ctx, updates)
	if err != nil {
		return model.AggregatedModel{}, err
	}

	out := model.AggregatedModel{
		Weights:    weights,
		ModelHash:  a.ModelHash(weights),
		NumClients: len(updates),
	}

	took := time.Since(start)
	metrics.RecordAggregation(out.NumClients, len(weights), float64(took.Microseconds())/1000)
	a.logger.Info(ctx, "aggregation completed",
		logger.Int("clients", out.NumClients),
		logger.Int("dim", len(weights)),
		logger.String("model_hash", out.ModelHash),
		logger.Duration("took", took),
	)
	return out, nil
}

// AggregateWeights runs validation, clipping, weighted averaging and noise,
// returning the aggregate vector without hashing it.
func (a *Aggregator) AggregateWeights(ctx context.Context, updates []model.ClientUpdate) ([]float64, error) {
	dim, err := Validate(updates)
	if err != nil {
		a.reject(ctx, err, len(updates))
		return nil, err
	}

	a.checkDuplicates(ctx, updates)

	clipped := make([]model.ClientUpdate, len(updates))
	rescaled := 0
	for i, u := range updates {
		w, scaled := clip(u.Weights, a.cfg.ClippingNorm)
		if scaled {
			rescaled++
			a.logger.Debug(ctx, "clipped client update",
				logger.String("client_id", u.ClientID),
				logger.Float64("norm", L2Norm(u.Weights)),
			)
		}
		clipped[i] = model.ClientUpdate{ClientID: u.ClientID, NumExamples: u.NumExamples, Weights: w}
	}
	metrics.RecordClippedUpdates(rescaled)

	agg, err := a.average(ctx, dim, clipped)
	if err != nil {
		a.reject(ctx, err, len(updates))
		return nil, err
	}

	if a.cfg.NoiseStdDev > 0 {
		agg = AddNoise(agg, a.cfg.NoiseStdDev, a.noise)
		metrics.RecordNoisedAggregation()
	}
	return agg, nil
}

// ModelHash returns the canonical digest of an aggregate.
func (a *Aggregator) ModelHash(weights []float64) string {
	return digest.Sum(weights)
}

func (a *Aggregator) average(ctx context.Context, dim int, clipped []model.ClientUpdate) ([]float64, error) {
	if a.cfg.ShardCount > 1 && len(clipped) >= a.cfg.ParallelThreshold {
		metrics.RecordShardedAggregation()
		return ShardedAverage(ctx, dim, clipped, a.cfg.ShardCount)
	}
	return WeightedAverage(dim, clipped), nil
}

func (a *Aggregator) checkDuplicates(ctx context.Context, updates []model.ClientUpdate) {
	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ClientID
	}
	dups := dedupe.Duplicates(ctx, ids)
	if len(dups) == 0 {
		return
	}
	metrics.RecordDuplicateClientIDs(len(dups))
	a.logger.Warn(ctx, "duplicate client ids in update set",
		logger.Int("count", len(dups)),
		logger.Any("client_ids", dups),
	)
}

func (a *Aggregator) reject(ctx context.Context, err error, n int) {
	kind := Kind(err)
	metrics.RecordAggregationError(kind)
	a.logger.Warn(ctx, "aggregation rejected",
		logger.String("kind", kind),
		logger.Int("updates", n),
		logger.Error(err),
	)
}
