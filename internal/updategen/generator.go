package updategen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fedagg/internal/domain/model"
	"github.com/okian/fedagg/pkg/logger"
)

// Generate creates cfg.Clients updates scattered around a shared center.
// Each client draws from its own generator seeded by (seed, index), so the
// output is independent of the worker count. Client IDs are random uuids
// unless a seed is set.
func Generate(ctx context.Context, cfg *Config) ([]model.ClientUpdate, error) {
	if cfg.Clients <= 0 || cfg.Dim <= 0 {
		return nil, fmt.Errorf("clients and dim must be positive, got %d and %d", cfg.Clients, cfg.Dim)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	center := make([]float64, cfg.Dim)
	crng := rand.New(rand.NewPCG(seed, 0)) //nolint:gosec // synthetic data
	for i := range center {
		center[i] = (crng.Float64()*2 - 1) * centerRange
	}

	updates := make([]model.ClientUpdate, cfg.Clients)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for i := range updates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			updates[i] = generateSingleUpdate(i, seed, cfg, center)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("context cancelled during update generation: %w", err)
	}

	logger.GetOr(logger.Nop()).Info(ctx, "generated client updates",
		logger.Int("clients", len(updates)),
		logger.Int("dim", cfg.Dim),
	)
	return updates, nil
}

// generateSingleUpdate builds the update for client index.
func generateSingleUpdate(index int, seed uint64, cfg *Config, center []float64) model.ClientUpdate {
	rng := rand.New(rand.NewPCG(seed, uint64(index+1)*seedStride)) //nolint:gosec // synthetic data

	weights := make([]float64, len(center))
	for j, c := range center {
		weights[j] = c + rng.NormFloat64()*cfg.Spread
	}

	id := uuid.NewString()
	if cfg.Seed != 0 {
		id = uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "fedagg/%d/%d", seed, index)).String()
	}

	return model.ClientUpdate{
		ClientID:    id,
		NumExamples: 1 + rng.IntN(maxExamples),
		Weights:     weights,
	}
}
