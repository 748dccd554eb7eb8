package entity

import "fmt"

// ErrorKind classifies domain-level failures surfaced by the rate service.
type ErrorKind int

const (
	// ErrDisabled means the FX feature is switched off by configuration.
	ErrDisabled ErrorKind = iota
	// ErrNoToken means the token accessor returned no credential.
	ErrNoToken
	// ErrCircuitOpen means the auth circuit breaker is open; no network
	// calls are made until it is explicitly reset.
	ErrCircuitOpen
	// ErrRateLimited means the remote service returned 429.
	ErrRateLimited
	// ErrNetworkUnavailable means the remote service could not be reached.
	ErrNetworkUnavailable
	// ErrStaleData means only data past its TTL was available.
	ErrStaleData
	// ErrConversionFailed means a conversion could not be completed.
	ErrConversionFailed
	// ErrUnsupportedCurrency means a currency code could not be resolved.
	ErrUnsupportedCurrency
	// ErrAPI wraps any other remote API failure.
	ErrAPI
)

func (k ErrorKind) String() string {
	switch k {
	case ErrDisabled:
		return "disabled"
	case ErrNoToken:
		return "no_token"
	case ErrCircuitOpen:
		return "circuit_open"
	case ErrRateLimited:
		return "rate_limited"
	case ErrNetworkUnavailable:
		return "network_unavailable"
	case ErrStaleData:
		return "stale_data"
	case ErrConversionFailed:
		return "conversion_failed"
	case ErrUnsupportedCurrency:
		return "unsupported_currency"
	case ErrAPI:
		return "api_error"
	default:
		return "unknown"
	}
}

// DomainError is the only error type the rate service lets cross its
// boundary. RequestID carries the remote correlation id, when the failure
// originated from a decoded server error envelope, so it survives all the
// way to the caller.
type DomainError struct {
	Kind      ErrorKind
	Message   string
	RequestID string
	Err       error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (request id %s)", e.Kind, msg, e.RequestID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a domain error with a plain message.
func NewDomainError(kind ErrorKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}
