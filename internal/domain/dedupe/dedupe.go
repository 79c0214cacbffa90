// Package dedupe tracks client identifiers already observed within one
// aggregation call.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen client ids.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Size returns the number of distinct ids recorded.
	Size() int
}

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithCapacity pre-sizes the set for the expected number of ids.
func WithCapacity(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.capacity = n
		}
	}
}

// inMemoryDeduper is an unbounded set scoped to the caller's lifetime.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	capacity int
}

// NewInMemoryDeduper creates an empty deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.capacity)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Duplicates returns every id that repeats an earlier one, in input order.
// An id appearing three times is reported twice.
func Duplicates(ctx context.Context, ids []string) []string {
	d := NewInMemoryDeduper(WithCapacity(len(ids)))
	var dups []string
	for _, id := range ids {
		if d.SeenAndRecord(ctx, id) {
			dups = append(dups, id)
		}
	}
	return dups
}
