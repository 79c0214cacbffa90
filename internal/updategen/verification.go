package updategen

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/fedagg/internal/domain/aggregation"
	"github.com/okian/fedagg/internal/domain/digest"
	"github.com/okian/fedagg/internal/domain/model"
	"github.com/okian/fedagg/pkg/logger"
)

// Verification errors.
var (
	ErrDigestMismatch = errors.New("model hash does not match returned weights")
	ErrLocalMismatch  = errors.New("server aggregate differs from local aggregate")
)

// verifyResult checks the returned digest against the returned weights and,
// when noise is disabled, against a local aggregation of the same updates.
func verifyResult(ctx context.Context, cfg *Config, updates []model.ClientUpdate, got model.AggregatedModel, stats *Stats) error {
	if !digest.Verify(got.Weights, got.ModelHash) {
		return fmt.Errorf("%w: got %s, recomputed %s", ErrDigestMismatch, got.ModelHash, digest.Sum(got.Weights))
	}
	stats.DigestVerified = true

	if got.NumClients != len(updates) {
		return fmt.Errorf("%w: num_clients %d, submitted %d", ErrLocalMismatch, got.NumClients, len(updates))
	}

	if cfg.Noise > 0 {
		logger.GetOr(logger.Nop()).Info(ctx, "noise enabled; skipping local comparison")
		return nil
	}

	agg, err := aggregation.New(aggregation.WithClippingNorm(cfg.Clip))
	if err != nil {
		return fmt.Errorf("build local aggregator: %w", err)
	}
	local, err := agg.Aggregate(ctx, updates)
	if err != nil {
		return fmt.Errorf("local aggregation: %w", err)
	}
	stats.LocalHash = local.ModelHash

	if local.ModelHash != got.ModelHash {
		return fmt.Errorf("%w: server %s, local %s", ErrLocalMismatch, got.ModelHash, local.ModelHash)
	}
	stats.LocalMatched = true
	return nil
}
