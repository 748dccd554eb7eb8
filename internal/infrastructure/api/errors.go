// Package api implements the HTTP transport for the remote FX rate service:
// request descriptors, status classification, and the retry policy.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorKind classifies transport-level failures.
type ErrorKind int

const (
	ErrUnauthorized ErrorKind = iota
	ErrRateLimited
	ErrServerError
	ErrBadRequest
	ErrNotFound
	ErrDecodingFailed
	ErrNetwork
	ErrTimeout
	ErrInvalidURL
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnauthorized:
		return "unauthorized"
	case ErrRateLimited:
		return "rate_limited"
	case ErrServerError:
		return "server_error"
	case ErrBadRequest:
		return "bad_request"
	case ErrNotFound:
		return "not_found"
	case ErrDecodingFailed:
		return "decoding_failed"
	case ErrNetwork:
		return "network_error"
	case ErrTimeout:
		return "timeout"
	case ErrInvalidURL:
		return "invalid_url"
	default:
		return "unknown"
	}
}

// Error is the typed transport error raised by the client. RequestID is the
// correlation id surfaced by the remote service's error envelope; it must
// never be dropped on the way to the caller.
type Error struct {
	Kind      ErrorKind
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// errorEnvelope is the standard error body returned by the rate service on
// every non-2xx response.
type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

// classifyStatus maps a non-2xx response to a typed transport error,
// recovering the human message and correlation id from the error envelope
// when the body parses. An unparseable envelope never masks the status
// classification.
func classifyStatus(status int, body []byte) *Error {
	var kind ErrorKind
	switch {
	case status == http.StatusBadRequest:
		kind = ErrBadRequest
	case status == http.StatusUnauthorized:
		kind = ErrUnauthorized
	case status == http.StatusNotFound:
		kind = ErrNotFound
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimited
	default:
		kind = ErrServerError
	}

	apiErr := &Error{Kind: kind, Status: status, Message: http.StatusText(status)}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error.Message != "" {
			apiErr.Message = env.Error.Message
		}
		apiErr.RequestID = env.Error.RequestID
	}
	return apiErr
}
