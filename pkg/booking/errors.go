package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrReservationFailed is returned once every retry of a purchase has
	// failed on the transport or with a server error.
	ErrReservationFailed = errors.New("connection error, can't reserve your tickets")
	ErrSeatConflict      = errors.New("seat conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
)

// APIError is a 4xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	Conflicts  []string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	if len(e.Conflicts) > 0 {
		return fmt.Sprintf("%d %s: %v", e.StatusCode, e.Message, e.Conflicts)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusConflict:
		return ErrSeatConflict
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

func newAPIError(status int, env *envelope) *APIError {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}
	if env == nil {
		return apiErr
	}
	if env.Message != "" {
		apiErr.Message = env.Message
	}
	apiErr.Details = env.Errors

	var conflicts struct {
		Conflicts []string `json:"conflicts"`
	}
	if len(env.Errors) > 0 && json.Unmarshal(env.Errors, &conflicts) == nil {
		apiErr.Conflicts = conflicts.Conflicts
	}
	return apiErr
}
