package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"shophub/internal/middleware"
	"shophub/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError translates an error into the standard error envelope. Domain
// errors carry their own code and user-safe message; anything else becomes an
// opaque internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	correlationID := middleware.RequestIDFrom(r.Context())

	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status := statusForCode(domainErr.Code)
		logger.Warn().
			Str("code", domainErr.Code).
			Str("message", domainErr.Message).
			Int("status", status).
			Str("request_id", correlationID).
			Msg("request rejected")
		writeJSON(w, status, model.ErrorResponse{
			Error:         domainErr.Code,
			Message:       domainErr.Message,
			Details:       domainErr.Details,
			CorrelationID: correlationID,
		})
		return
	}

	logger.Error().
		Err(err).
		Str("request_id", correlationID).
		Msg("handler error")
	writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
		Error:         model.ErrCodeInternalError,
		Message:       "internal server error",
		CorrelationID: correlationID,
	})
}

// writeValidationError rejects a request before it reaches the service layer.
func writeValidationError(w http.ResponseWriter, r *http.Request, message string, logger zerolog.Logger) {
	writeError(w, r, model.NewDomainError(model.ErrCodeInvalidRequest, message), logger)
}

// statusForCode maps a domain error code to its HTTP status.
func statusForCode(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON, model.ErrCodeInvalidRequest, model.ErrCodeCouponRejected:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodePaymentFailed:
		return http.StatusPaymentRequired
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeCustomerNotFound, model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeInsufficientStock, model.ErrCodeStateConflict, model.ErrCodeCancellationExpired:
		return http.StatusConflict
	case model.ErrCodeCreditLimitExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
