package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. The status code is chosen from the error kind
//  4. The technical error is logged with the request ID for correlation
//  5. The client receives core.MapError's user message as JSON

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/nexus-import/internal/core"
	"github.com/JonMunkholm/nexus-import/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps an error kind to an HTTP status code.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrInputEmpty),
		errors.Is(err, core.ErrMappingIncomplete),
		errors.Is(err, core.ErrMappingUnproductive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrValidationMissing), errors.Is(err, core.ErrUnknownHeader):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownProfile), errors.Is(err, core.ErrCandidateNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNothingToSave):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyParses):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error and writes the user-facing message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	ue := core.NewUserError(err)
	status := statusFor(ue.Technical)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", ue.Technical.Error(),
		"code", ue.User.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Info("request rejected", args...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, ErrorResponse{
		Error:   ue.User.Message,
		Message: ue.User.Message,
		Action:  ue.User.Action,
		Code:    ue.User.Code,
	})
}

// respondBadRequest reports a malformed request that never reached the service.
func respondBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "REQ001",
	})
}
