// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses so handlers set
// status, headers and body in one place.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"loantracker/internal/core"
	"loantracker/internal/services"
)

// JSONResponseBuilder accumulates a JSON response.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes only the status.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a response with body {"error": message}.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidExpiry),
		errors.Is(err, core.ErrTooLong):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStoreUnreadable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the error response for err. Internal errors are logged and
// replaced with a generic message.
func FromError(r *http.Request, err error) *JSONResponseBuilder {
	status := statusForError(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	case http.StatusServiceUnavailable:
		slog.ErrorContext(r.Context(), "Storage unreadable", "path", r.URL.Path, "error", err)
		msg = "storage unavailable"
	}
	return ErrorResponse(status, msg)
}

// statusForOutcome maps a share resolution outcome to its HTTP status.
func statusForOutcome(o services.Outcome) int {
	switch o {
	case services.Resolved:
		return http.StatusOK
	case services.PasswordRequired:
		return http.StatusUnauthorized
	case services.PasswordRejected:
		return http.StatusForbidden
	case services.Expired:
		return http.StatusGone
	default:
		return http.StatusNotFound
	}
}
