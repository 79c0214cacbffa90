package aggregation

import (
	"math/rand/v2"
	"sync"
)

// NoiseSource draws standard normal samples (mean 0, stddev 1).
// Implementations shared across goroutines must be safe for concurrent use.
type NoiseSource interface {
	NormFloat64() float64
}

// processSource draws from the process-wide math/rand/v2 generator.
type processSource struct{}

func (processSource) NormFloat64() float64 { return rand.NormFloat64() }

// DefaultNoiseSource returns the unseeded, concurrency-safe source.
func DefaultNoiseSource() NoiseSource { return processSource{} }

// seededSource is a reproducible source guarded for concurrent use.
type seededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *seededSource) NormFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.NormFloat64()
}

// NewSeededSource returns a deterministic source: two sources built from the
// same seed yield the same sample sequence.
func NewSeededSource(seed uint64) NoiseSource {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} //nolint:gosec // noise, not key material
}

// AddNoise returns a copy of vector with an independent N(0, stddev²) sample
// added to each coordinate. stddev <= 0 returns an unchanged copy.
func AddNoise(vector []float64, stddev float64, src NoiseSource) []float64 {
	out := make([]float64, len(vector))
	copy(out, vector)
	if stddev <= 0 {
		return out
	}
	if src == nil {
		src = DefaultNoiseSource()
	}
	for i := range out {
		out[i] += stddev * src.NormFloat64()
	}
	return out
}
