// Package http provides HTTP server and handler implementations.
//
// This file implements the builder used by the JSON admin endpoints so every
// response carries the same envelope and status handling.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"churchclerk/internal/core"
	"churchclerk/internal/media"
	"churchclerk/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    map[string]any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
		payload:    make(map[string]any),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the "data" member of the envelope.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload["data"] = v
	return b
}

// Message sets a human readable "message", as shown after bulk actions.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.payload["message"] = msg
	return b
}

func (b *JSONResponseBuilder) Error(msg string) *JSONResponseBuilder {
	b.payload["error"] = msg
	return b
}

// Fields attaches per-field validation messages.
func (b *JSONResponseBuilder) Fields(fields map[string]string) *JSONResponseBuilder {
	b.payload["fields"] = fields
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

// ErrorResponse creates a standard error envelope.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Error(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ValidationFailed creates a 422 response listing the offending fields.
func ValidationFailed(verr *core.ValidationError) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, "validation failed").Fields(verr.Fields)
}

// ErrorFor maps a service error onto a response. Unknown errors become a
// generic 500 so internals never leak to the client.
func ErrorFor(err error) *JSONResponseBuilder {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return ValidationFailed(verr)
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("record not found")
	case errors.Is(err, services.ErrNoSelection), errors.Is(err, services.ErrUnknownAction):
		return BadRequestError(err.Error())
	case errors.Is(err, media.ErrEmptyUpload), errors.Is(err, media.ErrTooLarge), errors.Is(err, media.ErrTooManyPixels),
		errors.Is(err, media.ErrUnsupportedFormat):
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	}
	return InternalServerError("internal error")
}
