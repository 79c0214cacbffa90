// Package model contains domain models passed between layers.
package model

// ClientUpdate is one client's contribution to an aggregation call.
type ClientUpdate struct {
	ClientID    string    `json:"client_id"`    // traceability only; never used for weighting
	NumExamples int       `json:"num_examples"` // local example count, floored at 1 when weighting
	Weights     []float64 `json:"weights"`      // local model-update vector
}

// Weight returns the example count used as this update's averaging weight.
// Zero and negative counts never silence a client.
func (u ClientUpdate) Weight() float64 {
	if u.NumExamples < 1 {
		return 1
	}
	return float64(u.NumExamples)
}

// AggregatedModel is the result of a single aggregation call.
type AggregatedModel struct {
	Weights    []float64 `json:"weights" yaml:"weights"`
	ModelHash  string    `json:"model_hash" yaml:"model_hash"`
	NumClients int       `json:"num_clients" yaml:"num_clients"`
}
