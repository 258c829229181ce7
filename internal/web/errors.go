package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and request id, then
// returned to the client as a coded JSON message from core.MapError.
// Failures reported by the remote toll service keep the service's own
// message and status, matching what the single-lookup front end expects.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/tollbatch/internal/core"
	"github.com/JonMunkholm/tollbatch/internal/csvcodec"
	"github.com/JonMunkholm/tollbatch/internal/logging"
	"github.com/JonMunkholm/tollbatch/internal/tollapi"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes a JSON error. A zero status is derived
// from the error.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	userMsg := core.MapError(err)
	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}

	var le *tollapi.LookupError
	if errors.As(err, &le) {
		resp.Error = le.Message
		resp.Message = le.Message
	}

	if status == 0 {
		status = statusFor(err)
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	writeJSON(w, status, resp)
}

// writeError responds with a plain message.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondError(w, r, errors.New(message), status)
}

// statusFor maps known errors to HTTP status codes.
func statusFor(err error) int {
	var le *tollapi.LookupError
	switch {
	case errors.As(err, &le):
		if le.Status >= 400 {
			return le.Status
		}
		return http.StatusBadGateway
	case errors.Is(err, core.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrRunNotFinished):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrHistoryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, csvcodec.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrMissingColumns):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotCSV),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrNoDataRows),
		errors.Is(err, csvcodec.ErrEmptyFile),
		errors.Is(err, csvcodec.ErrUnsupportedEncoding):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
