package aggregation

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrEmptyInput        = errors.New("no client updates supplied")
	ErrEmptyVector       = errors.New("empty model update vector")
	ErrDimensionMismatch = errors.New("all updates must have same dimension")
	ErrNonFiniteWeight   = errors.New("model update contains a non-finite weight")
	ErrInvalidConfig     = errors.New("invalid aggregation config")
)

// DimensionMismatchError reports an update whose vector length differs from
// the first update's.
type DimensionMismatchError struct {
	Index    int
	ClientID string
	Want     int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: update %d (client %q) has %d weights, want %d",
		ErrDimensionMismatch, e.Index, e.ClientID, e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NonFiniteError reports a NaN or infinite coordinate.
type NonFiniteError struct {
	Index      int
	ClientID   string
	Coordinate int
	Value      float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("%s: update %d (client %q) weight[%d] = %v",
		ErrNonFiniteWeight, e.Index, e.ClientID, e.Coordinate, e.Value)
}

func (e *NonFiniteError) Unwrap() error { return ErrNonFiniteWeight }

// Kind returns a stable, label-friendly name for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrEmptyVector):
		return "empty_vector"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrNonFiniteWeight):
		return "non_finite_weight"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
