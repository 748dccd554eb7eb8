package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticToken(token string) TokenProvider {
	return func() (string, bool) { return token, token != "" }
}

func fastRetry(maxAttempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestSendSuccess(t *testing.T) {
	var gotAccept, gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, staticToken("secret-token"), fastRetry(3), nil)
	body, err := client.Send(context.Background(), Request{Path: "/fx/latest", Method: http.MethodGet, RequiresAuth: true})

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestSendOmitsAuthWhenNotRequired(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, staticToken("secret-token"), fastRetry(3), nil)
	_, err := client.Send(context.Background(), Request{Path: "/health", Method: http.MethodGet})

	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestSendUnauthorizedIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"unauthorized","message":"token expired","requestId":"req-401"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, staticToken("stale"), fastRetry(3), nil)
	_, err := client.Send(context.Background(), Request{Path: "/fx/latest", Method: http.MethodGet, RequiresAuth: true})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrUnauthorized, apiErr.Kind)
	assert.Equal(t, "token expired", apiErr.Message)
	assert.Equal(t, "req-401", apiErr.RequestID)
	assert.Equal(t, int32(1), requests.Load())
}

func TestSendServerErrorExhaustsAttempts(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, staticToken("tok"), fastRetry(3), nil)
	_, err := client.Send(context.Background(), Request{Path: "/fx/latest", Method: http.MethodGet, RequiresAuth: true})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrServerError, apiErr.Kind)
	assert.Equal(t, int32(3), requests.Load())
}

func TestSendRecoversAfterTransientFailure(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, staticToken("tok"), fastRetry(5), nil)
	body, err := client.Send(context.Background(), Request{Path: "/fx/latest", Method: http.MethodGet, RequiresAuth: true})

	require.NoError(t, err)
	assert.Equal(t, "finally", string(body))
	assert.Equal(t, int32(3), requests.Load())
}

func TestSendCancellationAbortsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	retry := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 8 * time.Second}
	client := NewClient(server.URL, nil, staticToken("tok"), retry, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := client.Send(ctx, Request{Path: "/fx/latest", Method: http.MethodGet, RequiresAuth: true})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSendWithoutTokenFailsBeforeNetwork(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, staticToken(""), fastRetry(3), nil)
	_, err := client.Send(context.Background(), Request{Path: "/fx/latest", Method: http.MethodGet, RequiresAuth: true})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrUnauthorized, apiErr.Kind)
	assert.Equal(t, int32(0), requests.Load())
}

func TestSendInvalidBaseURL(t *testing.T) {
	client := NewClient("not-a-url", nil, staticToken("tok"), fastRetry(3), nil)
	_, err := client.Send(context.Background(), Request{Path: "/health", Method: http.MethodGet})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrInvalidURL, apiErr.Kind)
}

func TestSendNetworkErrorKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, nil, staticToken("tok"), fastRetry(2), nil)
	_, err := client.Send(context.Background(), Request{Path: "/health", Method: http.MethodGet})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrNetwork, apiErr.Kind)
}

func TestSendJSONDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, staticToken("tok"), fastRetry(3), nil)
	var out map[string]any
	err := client.SendJSON(context.Background(), Request{Path: "/fx/latest", Method: http.MethodGet, RequiresAuth: true}, &out)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrDecodingFailed, apiErr.Kind)
}
