package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
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
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusFor maps a connection-layer error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, datasource.ErrPoolNotDefined):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrInvalidParameter):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, apperrors.ErrUnsupportedKind):
		return http.StatusBadRequest, "unsupported_kind"
	case errors.Is(err, apperrors.ErrDependencyMissing):
		return http.StatusNotImplemented, "dependency_missing"
	case errors.Is(err, apperrors.ErrPoolExhausted):
		return http.StatusServiceUnavailable, "pool_exhausted"
	case errors.Is(err, apperrors.ErrConnection):
		return http.StatusBadGateway, "connection_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
