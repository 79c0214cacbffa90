package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	service "github.com/okian/fedagg/internal/app"
	"github.com/okian/fedagg/internal/domain/aggregation"
	"github.com/okian/fedagg/internal/loader"
	"github.com/okian/fedagg/pkg/logger"
)

// RoundIDHeader carries the round identifier on requests and responses.
const RoundIDHeader = "X-Round-ID"

// AggregateHandler handles aggregation requests.
type AggregateHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewAggregateHandler creates a new aggregate handler.
func NewAggregateHandler(deps Dependencies) *AggregateHandler {
	return &AggregateHandler{
		deps:   deps,
		logger: logger.GetOr(logger.Nop()).Named("api"),
	}
}

// HandlePostAggregate handles POST /aggregate requests.
// Optional query parameters clip and noise override the server defaults
// for this round only.
func (h *AggregateHandler) HandlePostAggregate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_aggregate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	roundID := r.Header.Get(RoundIDHeader)
	if _, err := uuid.Parse(roundID); err != nil {
		roundID = uuid.NewString()
	}
	w.Header().Set(RoundIDHeader, roundID)

	req := service.Request{RoundID: roundID}

	var err error
	if req.ClippingNorm, err = floatParam(r, "clip"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_config", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.NoiseStdDev, err = floatParam(r, "noise"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_config", WrapKind(op, ErrBadRequest, err))
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.deps.MaxRequestBytes())
	req.Updates, err = loader.Decode(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
				WrapKind(op, ErrPayloadTooLarge, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)))
		case errors.Is(err, loader.ErrMalformedUpdates):
			writeError(w, http.StatusBadRequest, "malformed_updates", WrapKind(op, ErrBadRequest, err))
		default:
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		}
		return
	}

	out, err := h.deps.Aggregate(r.Context(), req)
	if err != nil {
		status, code := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "aggregation failed",
				logger.String("roundId", roundID),
				logger.Error(err),
			)
		}
		writeError(w, status, code, WrapKind(op, kindFor(status), err))
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// statusFor maps service and domain errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	if errors.Is(err, service.ErrNotStarted) {
		return http.StatusServiceUnavailable, "unavailable"
	}
	switch kind := aggregation.Kind(err); kind {
	case "empty_input", "empty_vector", "dimension_mismatch", "non_finite_weight", "invalid_config":
		return http.StatusBadRequest, kind
	case "canceled":
		return http.StatusServiceUnavailable, kind
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func kindFor(status int) error {
	if status == http.StatusBadRequest {
		return ErrBadRequest
	}
	return ErrUnavailable
}

// floatParam returns nil when the query parameter is absent.
func floatParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &v, nil
}
