package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ServiceError maps service-layer sentinel errors onto HTTP responses so
// every handler reports the same status for the same failure class.
func ServiceError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrExecutionInFlight):
		return ErrorResponse(w, http.StatusConflict, "execution_in_flight", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		return ErrorResponse(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, apperrors.ErrLockHeld):
		return ErrorResponse(w, http.StatusConflict, "lock_held", err.Error())
	case errors.Is(err, apperrors.ErrPreconditionFailed):
		return ErrorResponse(w, http.StatusUnprocessableEntity, "precondition_failed", err.Error())
	case errors.Is(err, apperrors.ErrUnsupportedKind):
		return ErrorResponse(w, http.StatusBadRequest, "unsupported_kind", err.Error())
	case errors.Is(err, apperrors.ErrMetadataUnavailable):
		return ErrorResponse(w, http.StatusBadGateway, "metadata_unavailable", err.Error())
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
