package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindRateLimited
	KindServer
	KindNetwork
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnknown      = errors.New("request failed")

	// ErrMalformedResponse is returned when a 2xx body lacks required fields.
	ErrMalformedResponse = errors.New("malformed response")
)

func (k Kind) String() string {
	return k.sentinel().Error()
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindValidation:
		return ErrValidation
	case KindRateLimited:
		return ErrRateLimited
	case KindServer:
		return ErrServer
	case KindNetwork:
		return ErrUnavailable
	default:
		return ErrUnknown
	}
}

// Classify maps an HTTP status to a Kind. Status 0 means no response.
func Classify(status int) Kind {
	switch {
	case status == 0:
		return KindNetwork
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindUnknown
	}
}

// APIError is returned by Send for every failed call. It matches the
// sentinel of its Kind with errors.Is, and the transport error if any.
type APIError struct {
	Kind       Kind
	StatusCode int
	Method     string
	Path       string
	// Message is the text shown to the user for this failure.
	Message string
	// Payload is the raw response body, nil when there was no response.
	Payload []byte
	Err     error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, e.Kind, e.Message)
}

func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}
