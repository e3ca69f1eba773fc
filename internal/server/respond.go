package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/tunebox/internal/shared"
)

const maxJSONBody = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

func methodNotAllowed(method string) error {
	return &statusError{status: http.StatusMethodNotAllowed, msg: fmt.Sprintf("method %s not allowed", method)}
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	var se *statusError
	switch {
	case errors.As(err, &se):
		return se.status
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a JSON error body with the mapped status.
//
// Client errors carry their message; server errors carry a generic message with the cause in details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := ErrorBody{Error: err.Error()}
	switch {
	case status == http.StatusForbidden:
		body = ErrorBody{Error: "Something went wrong"}
	case status >= http.StatusInternalServerError:
		body = ErrorBody{Error: "Internal server error", Details: err.Error()}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON request body into v. Malformed bodies are input errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", shared.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}
