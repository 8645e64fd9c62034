package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/services"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// errorStatus maps a service error onto an HTTP status.
func errorStatus(err error) int {
	switch {
	case core.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it as JSON. Internal errors are reported
// with the generic message msg only.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := errorStatus(err)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)

	body := errorBody{Error: msg}
	switch status {
	case http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), msg,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldPath, r.URL.Path)
	default:
		body.Details = publicDetail(err)
		logger.WarnContext(r.Context(), msg,
			log.FieldError, err,
			log.FieldErrorType, errorType(status),
			log.FieldStatusCode, status)
	}
	writeJSON(w, status, body)
}

// publicDetail returns the client-safe part of err: the validation message
// when there is one, the full chain otherwise.
func publicDetail(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return log.ErrorTypeValidation
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusConflict:
		return log.ErrorTypeConflict
	default:
		return log.ErrorTypeInternal
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string, err error) {
	writeError(w, r, msg, core.NewValidationError(err.Error()))
}
