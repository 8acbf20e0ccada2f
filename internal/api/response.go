package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"stockwatch/pkg/stockwatch"
)

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMessageSetter interface {
	SetErrorMessage(message string)
}

type refreshNoter interface {
	NoteRefresh(symbols int, quotes []stockwatch.Result, skipped []string)
}

// noteRefresh hands the cycle outcome to the request log, when there is one.
func noteRefresh(w http.ResponseWriter, symbols int, quotes []stockwatch.Result, skipped []string) {
	if noter, ok := w.(refreshNoter); ok {
		noter.NoteRefresh(symbols, quotes, skipped)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeErrorResponse writes err with the HTTP status matching its error code.
// Errors without a code are reported as internal errors.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	response := ErrorResponse{
		Message:   err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	var swErr *stockwatch.Error
	if errors.As(err, &swErr) {
		response.ErrorCode = string(swErr.Code)
		status = mapErrorCodeToHTTPStatus(swErr.Code)
	}
	response.Code = status

	if setter, ok := w.(errorMessageSetter); ok {
		setter.SetErrorMessage(response.Message)
	}
	writeJSON(w, status, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code stockwatch.ErrorCode) int {
	switch code {
	case stockwatch.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case stockwatch.ErrCodeDuplicate:
		return http.StatusConflict
	case stockwatch.ErrCodeUpstream, stockwatch.ErrCodeUnparseable:
		return http.StatusBadGateway
	case stockwatch.ErrCodeDatabase, stockwatch.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
