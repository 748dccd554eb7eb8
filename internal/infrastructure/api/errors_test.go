package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	envelope := []byte(`{"error":{"code":"quota","message":"monthly quota exhausted","requestId":"req-42"}}`)

	tests := []struct {
		name   string
		status int
		body   []byte
		kind   ErrorKind
	}{
		{"bad request", http.StatusBadRequest, envelope, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, envelope, ErrUnauthorized},
		{"not found", http.StatusNotFound, envelope, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, envelope, ErrRateLimited},
		{"server error", http.StatusInternalServerError, envelope, ErrServerError},
		{"bad gateway", http.StatusBadGateway, envelope, ErrServerError},
		{"unexpected status", http.StatusTeapot, envelope, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, tt.body)
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, tt.status, err.Status)
			assert.Equal(t, "monthly quota exhausted", err.Message)
			assert.Equal(t, "req-42", err.RequestID)
		})
	}
}

func TestClassifyStatusWithUnparseableBody(t *testing.T) {
	// A broken envelope must not mask the status classification.
	err := classifyStatus(http.StatusServiceUnavailable, []byte("<html>gateway timeout</html>"))
	assert.Equal(t, ErrServerError, err.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), err.Message)
	assert.Empty(t, err.RequestID)
}

func TestErrorStringIncludesStatus(t *testing.T) {
	err := &Error{Kind: ErrServerError, Status: 500, Message: "boom"}
	assert.Contains(t, err.Error(), "server_error")
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "boom")
}
