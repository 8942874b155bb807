package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrPollTimeout indicates a feed export never left the pending state within
// the configured number of polls.
var ErrPollTimeout = errors.New("feed export poll limit reached")

// ConfigurationError is returned at construction when required settings,
// such as the credential pair, are missing.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "matchlight configuration: " + e.Msg
}

// ConnectionError is returned when a request could not be completed: the
// retry budget ran out or the transport failed outright.
type ConnectionError struct {
	Msg string
	Err error
}

func (e *ConnectionError) Error() string {
	return e.Msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// APIError is returned when the API answers with anything but 200.
// Body holds the decoded JSON payload when the response carried one.
type APIError struct {
	StatusCode int
	Reason     string
	Body       any
}

func (e *APIError) Error() string {
	if e.Body != nil {
		return fmt.Sprintf("matchlight api %d %s: %v", e.StatusCode, e.Reason, e.Body)
	}
	return fmt.Sprintf("matchlight api %d %s", e.StatusCode, e.Reason)
}

// IsNotFound reports whether err is an APIError carrying a 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ValidationError reports a caller contract violation caught before any
// network call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Msg
}

// DomainError is a failure reported by the service inside an otherwise
// successful response.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string {
	return e.Msg
}

// NewDomainError uses msg when the service supplied one, fallback otherwise.
func NewDomainError(msg, fallback string) *DomainError {
	if msg == "" {
		msg = fallback
	}
	return &DomainError{Msg: msg}
}
