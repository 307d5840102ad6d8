// Package http exposes the ledger as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"gastos/internal/core"
)

// ResponseBuilder assembles a JSON response.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.payload = v
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		http.Error(w, `{"error":{"code":"internal","message":"encoding failed"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse builds the standard error envelope.
func ErrorResponse(statusCode int, code, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(errorBody{Error: errorDetail{Code: code, Message: message}})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func ConflictError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusConflict, "conflict", message)
}

// FromError maps a ledger error to its HTTP status and error code.
func FromError(err error) *ResponseBuilder {
	switch {
	case errors.Is(err, core.ErrMalformedIntent):
		return ErrorResponse(http.StatusUnprocessableEntity, "malformed_intent", err.Error())
	case errors.Is(err, core.ErrInvalidAmount):
		return ErrorResponse(http.StatusUnprocessableEntity, "invalid_amount", err.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrConflict):
		return ConflictError(err.Error())
	case errors.Is(err, core.ErrStorage):
		return ErrorResponse(http.StatusServiceUnavailable, "storage_unavailable", "ledger storage is unavailable")
	default:
		return ErrorResponse(http.StatusInternalServerError, "internal", "internal error")
	}
}
