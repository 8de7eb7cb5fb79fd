package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mozhi/internal/util"
	"mozhi/services/world/internal/app"
)

// Error codes carried in error envelopes.
const (
	codeHTTPException = "HTTP_EXCEPTION"
	codeValidation    = "VALIDATION_ERROR"
	codeInternal      = "INTERNAL_SERVER_ERROR"
)

type successResponse struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Result    any    `json:"result"`
	Timestamp int64  `json:"timestamp"`
}

type errorResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	ErrorCode string           `json:"error_code"`
	Details   []app.FieldError `json:"details,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

func newSuccess(message string, result any) successResponse {
	if message == "" {
		message = "success"
	}
	return successResponse{
		Success:   true,
		Code:      0,
		Message:   message,
		Result:    result,
		Timestamp: time.Now().UnixMilli(),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOK(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, newSuccess("", result))
}

func writeCreated(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusCreated, newSuccess("created", result))
}

// writeHTTPError sends an explicit HTTP failure.
func writeHTTPError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if msg == "" {
		msg = "HTTP error"
	}
	writeJSON(w, status, errorResponse{
		Message:   msg,
		ErrorCode: codeHTTPException,
		RequestID: util.RequestIDFromRequest(r),
	})
}

// writeError translates err into one of the three failure classes: explicit
// HTTP errors, validation errors, and everything else as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *app.Error
	var valErr *app.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &appErr):
		writeHTTPError(w, r, appErr.Status, appErr.Message)
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Message:   "Validation error",
			ErrorCode: codeValidation,
			Details:   valErr.Details,
			RequestID: util.RequestIDFromRequest(r),
		})
	case errors.Is(err, app.ErrCoverStorageDisabled):
		writeHTTPError(w, r, http.StatusServiceUnavailable, "Cover storage is not configured")
	case errors.Is(err, app.ErrCoverTooLarge), errors.As(err, &tooLarge):
		writeHTTPError(w, r, http.StatusRequestEntityTooLarge, "Cover file too large")
	case errors.Is(err, app.ErrCoverType):
		writeHTTPError(w, r, http.StatusUnsupportedMediaType, "Unsupported cover type")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		writeInternal(w, r)
	}
}

func writeInternal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Message:   "Internal server error",
		ErrorCode: codeInternal,
		RequestID: util.RequestIDFromRequest(r),
	})
}
