// Package loader reads client update documents and writes aggregation results.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/okian/fedagg/internal/domain/model"
)

// wireUpdate mirrors one document entry. Pointers distinguish missing and
// null fields from zero values.
type wireUpdate struct {
	ClientID    *string         `json:"client_id"`
	NumExamples json.RawMessage `json:"num_examples"`
	Weights     *[]*float64     `json:"weights"`
}

var nullLiteral = []byte("null")

// LoadUpdates reads and decodes the update file at path.
func LoadUpdates(ctx context.Context, path string) ([]model.ClientUpdate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadUpdates, err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Decode parses a JSON array of client updates. Every entry must carry a
// string client_id, an integral num_examples and an array of numeric weights.
func Decode(r io.Reader) ([]model.ClientUpdate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadUpdates, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: document must be a JSON array of updates: %w", ErrMalformedUpdates, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: document must be a JSON array of updates", ErrMalformedUpdates)
	}

	updates := make([]model.ClientUpdate, 0, len(entries))
	for i, raw := range entries {
		u, err := decodeEntry(i, raw)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func decodeEntry(i int, raw json.RawMessage) (model.ClientUpdate, error) {
	var w wireUpdate
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.ClientUpdate{}, &EntryError{Index: i, Reason: err.Error()}
	}
	if bytes.Equal(bytes.TrimSpace(raw), nullLiteral) {
		return model.ClientUpdate{}, &EntryError{Index: i, Reason: "entry is null"}
	}
	if w.ClientID == nil {
		return model.ClientUpdate{}, &EntryError{Index: i, Reason: "client_id is required"}
	}

	n, err := parseCount(w.NumExamples)
	if err != nil {
		return model.ClientUpdate{}, &EntryError{Index: i, Reason: err.Error()}
	}

	if w.Weights == nil {
		return model.ClientUpdate{}, &EntryError{Index: i, Reason: "weights is required"}
	}
	weights := make([]float64, len(*w.Weights))
	for j, v := range *w.Weights {
		if v == nil {
			return model.ClientUpdate{}, &EntryError{Index: i, Reason: fmt.Sprintf("weights[%d] is null", j)}
		}
		weights[j] = *v
	}

	return model.ClientUpdate{ClientID: *w.ClientID, NumExamples: n, Weights: weights}, nil
}

// parseCount accepts JSON integers and integral floats such as 10.0.
func parseCount(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullLiteral) {
		return 0, fmt.Errorf("num_examples is required")
	}
	if raw[0] == '"' {
		return 0, fmt.Errorf("num_examples must be a number, got %s", raw)
	}
	if n, err := strconv.Atoi(string(raw)); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("num_examples must be an integer, got %s", raw)
	}
	return int(f), nil
}
