package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "centavo-fx-client/1.3.0"
)

// TokenProvider returns the current bearer token, or false when none is
// configured. It is evaluated on every request so a rotated credential is
// picked up without rebuilding the client.
type TokenProvider func() (string, bool)

// Client issues requests against the rate service, applying the retry
// policy and mapping failures into the transport error taxonomy. It is
// stateless across calls apart from its injected dependencies.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenProvider
	retry      RetryPolicy
	log        logrus.FieldLogger
}

// NewClient creates a transport client. A nil httpClient gets a default
// with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client, token TokenProvider, retry RetryPolicy, log logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		retry:      retry,
		log:        log,
	}
}

// Send executes the described request and returns the raw response bytes.
// Failed attempts are retried per the retry policy; caller cancellation
// aborts the loop immediately and surfaces as a context error, never as an
// HTTP error kind.
func (c *Client) Send(ctx context.Context, req Request) ([]byte, error) {
	target, err := c.buildURL(req)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidURL, Message: "invalid request URL", Err: err}
	}

	for attempt := 0; ; attempt++ {
		body, err := c.attempt(ctx, req, target)
		if err == nil {
			return body, nil
		}

		var apiErr *Error
		if !errors.As(err, &apiErr) {
			// Cancellation or deadline from the caller.
			return nil, err
		}

		if !c.retry.Eligible(apiErr, attempt+1) {
			return nil, apiErr
		}

		delay := c.retry.Delay(attempt)
		c.log.WithFields(logrus.Fields{
			"request": req.String(),
			"attempt": attempt + 1,
			"delay":   delay.String(),
			"error":   apiErr.Error(),
		}).Warn("request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// SendJSON executes the request and decodes the response into out. Decode
// failures map to DecodingFailed.
func (c *Client) SendJSON(ctx context.Context, req Request, out any) error {
	body, err := c.Send(ctx, req)
	if err != nil {
		return err
	}
	return DecodeJSON(body, out)
}

// DecodeJSON unmarshals response bytes, mapping failures to DecodingFailed.
func DecodeJSON(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: ErrDecodingFailed, Message: "failed to decode response", Err: err}
	}
	return nil
}

func (c *Client) buildURL(req Request) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("base URL missing scheme or host")
	}
	u.Path = u.Path + req.Path
	u.RawQuery = req.Query.Encode()
	return u.String(), nil
}

func (c *Client) attempt(ctx context.Context, req Request, target string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, nil)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidURL, Message: "failed to build request", Err: err}
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if req.RequiresAuth {
		token, ok := c.token()
		if !ok {
			return nil, &Error{Kind: ErrUnauthorized, Message: "no bearer token available"}
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &Error{Kind: ErrTimeout, Message: "request timed out", Err: err}
		}
		return nil, &Error{Kind: ErrNetwork, Message: "network request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Kind: ErrNetwork, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode/100 == 2 {
		return body, nil
	}
	return nil, classifyStatus(resp.StatusCode, body)
}
