package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/finsight/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseIntQuery reads an integer query parameter, falling back to def
// when absent or unparseable.
func parseIntQuery(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// parseDateRange reads from/to query parameters (YYYY-MM-DD). When
// absent the range defaults to the last 30 days.
func parseDateRange(r *http.Request) (from, to time.Time, err error) {
	const layout = "2006-01-02"

	now := time.Now()
	to = now
	from = now.AddDate(0, 0, -30)

	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(layout, v)
		if err != nil {
			return from, to, &domain.ErrValidation{Field: "from", Message: "must be YYYY-MM-DD"}
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse(layout, v)
		if err != nil {
			return from, to, &domain.ErrValidation{Field: "to", Message: "must be YYYY-MM-DD"}
		}
		// make the upper bound inclusive of the named day
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var insufficientData *domain.ErrInsufficientData
	var externalService *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficientData):
		logger.Debug("insufficient data",
			zap.String("operation", insufficientData.Operation),
			zap.Int("needed", insufficientData.Needed),
			zap.Int("got", insufficientData.Got),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &externalService):
		logger.Error("external service error", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
