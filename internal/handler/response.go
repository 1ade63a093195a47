package handler

// RESPONSE HELPERS:
// Every JSON answer goes through writeJSON, every failure through writeError.
//
// ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"ok": false, "error": "No README found for a/b", "code": "not_found"}
//
// "error" is the human-readable message the SPA shows as-is, "code" is the
// machine-readable class.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/portfolio-api/internal/apperror"
)

// maxBodyBytes caps request bodies; the largest legitimate one is a chat
// history.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"` // Human-readable description
	Code  string `json:"code"`  // Machine-readable error class (e.g., "not_found")
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE writing the body. Once Encode
// writes, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a service error to an HTTP status and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation      → 400 validation_error
//	ErrUnauthenticated → 401 unauthenticated
//	ErrForbidden       → 403 forbidden
//	ErrNotFound        → 404 not_found
//	ErrRateLimited     → 429 rate_limited
//	ErrUpstream        → 502 upstream_error, or the upstream status if it is a 4xx
//	ErrNotConfigured   → 500 not_configured
//	ErrInternal        → 500 internal_error
//
// errors.Is walks the whole chain, so services are free to wrap AppErrors
// with fmt.Errorf("...: %w", err).
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, code := classify(err, appErr)
		writeJSON(w, status, ErrorResponse{Error: appErr.Message, Code: code})
		return
	}

	// Unknown error: the raw message may contain paths or SQL, so it is
	// logged and never returned.
	logger.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "Internal server error",
		Code:  "internal_error",
	})
}

func classify(err error, appErr *apperror.AppError) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, apperror.ErrUpstream):
		if appErr.Status >= 400 && appErr.Status < 500 {
			return appErr.Status, "upstream_error"
		}
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, apperror.ErrNotConfigured):
		return http.StatusInternalServerError, "not_configured"
	}
	return http.StatusInternalServerError, "internal_error"
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperror.ValidationFailed("body", "Invalid JSON body")
}
