package aggregation

import (
	"context"

	"github.com/okian/fedagg/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// totalWeight sums the floored example counts of updates.
func totalWeight(updates []model.ClientUpdate) float64 {
	var total float64
	for _, u := range updates {
		total += u.Weight()
	}
	return total
}

// accumulate adds weight(u)/total * u.Weights into dst for every update.
func accumulate(dst []float64, updates []model.ClientUpdate, total float64) {
	for _, u := range updates {
		w := u.Weight() / total
		for i := range dst {
			dst[i] += u.Weights[i] * w
		}
	}
}

// WeightedAverage combines already validated and clipped updates into one
// vector of length dim, weighting each by max(1, NumExamples).
func WeightedAverage(dim int, updates []model.ClientUpdate) []float64 {
	out := make([]float64, dim)
	if len(updates) == 0 {
		return out
	}
	accumulate(out, updates, totalWeight(updates))
	return out
}

// ShardedAverage computes WeightedAverage by splitting updates into up to
// shards contiguous partitions, summing each concurrently and adding the
// partial sums. Results match WeightedAverage up to floating-point rounding.
func ShardedAverage(ctx context.Context, dim int, updates []model.ClientUpdate, shards int) ([]float64, error) {
	if shards > len(updates) {
		shards = len(updates)
	}
	if shards <= 1 {
		return WeightedAverage(dim, updates), nil
	}

	total := totalWeight(updates)
	size := (len(updates) + shards - 1) / shards
	partials := make([][]float64, shards)

	g, gctx := errgroup.WithContext(ctx)
	for s := range shards {
		lo := s * size
		if lo >= len(updates) {
			break
		}
		hi := min(lo+size, len(updates))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partial := make([]float64, dim)
			accumulate(partial, updates[lo:hi], total)
			partials[s] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]float64, dim)
	for _, p := range partials {
		for i, v := range p {
			out[i] += v
		}
	}
	return out, nil
}
