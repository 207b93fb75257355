package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"DevcampAPI/internal/auth"
	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is an error with a client-facing status and message.
type ErrorResponse struct {
	Status  int
	Message string
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

func NewError(status int, message string) *ErrorResponse {
	return &ErrorResponse{Status: status, Message: message}
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteError maps err to a status and writes {success: false, error}.
// Anything it does not recognise is a 500 with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	fields := map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"error":  err.Error(),
	}
	if status >= 500 {
		logger.Error("request_failed", fields)
	} else {
		logger.Debug("request_rejected", fields)
	}
	writeJSON(w, status, errorBody{Success: false, Error: message})
}

func classify(err error) (int, string) {
	var (
		resp      *ErrorResponse
		forbidden *auth.ForbiddenError
		verrs     resource.ValidationErrors
		castErr   *resource.CastError
	)
	switch {
	case errors.As(err, &resp):
		return resp.Status, resp.Message
	case errors.As(err, &forbidden):
		return http.StatusForbidden, forbidden.Error()
	case errors.Is(err, auth.ErrNotAuthorized):
		return http.StatusUnauthorized, "Not authorized to access this route"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Resource not found"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusBadRequest, "Duplicate field value entered"
	case errors.As(err, &verrs):
		return http.StatusBadRequest, verrs.Error()
	case errors.As(err, &castErr):
		return http.StatusBadRequest, castErr.Error()
	}
	return http.StatusInternalServerError, "Server Error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err.Error()})
	}
}

// decodeBody reads a JSON object body. An empty body is an empty object.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, NewError(http.StatusBadRequest, "Failed to read body")
	}
	payload := map[string]any{}
	if len(body) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, NewError(http.StatusBadRequest, "Invalid JSON body")
	}
	return payload, nil
}
