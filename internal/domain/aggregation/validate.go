package aggregation

import (
	"fmt"
	"math"

	"github.com/okian/fedagg/internal/domain/model"
)

// Validate checks an update set and returns the shared vector dimension.
// The first failing precondition wins, in update order.
func Validate(updates []model.ClientUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, ErrEmptyInput
	}

	dim := len(updates[0].Weights)
	if dim == 0 {
		return 0, fmt.Errorf("%w: client %q", ErrEmptyVector, updates[0].ClientID)
	}

	for i, u := range updates {
		if len(u.Weights) != dim {
			return 0, &DimensionMismatchError{Index: i, ClientID: u.ClientID, Want: dim, Got: len(u.Weights)}
		}
		for j, w := range u.Weights {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return 0, &NonFiniteError{Index: i, ClientID: u.ClientID, Coordinate: j, Value: w}
			}
		}
	}
	return dim, nil
}
