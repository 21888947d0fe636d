package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/fitly-client/utils"
)

const (
	loginPath    = "/api/v1/auth/login"
	registerPath = "/api/v1/auth/register"
	mePath       = "/api/v1/auth/me"
	pricingPath  = "/api/v1/pricing"
	healthPath   = "/health"
)

var (
	// ErrTimeout is returned when the backend does not answer within the call's deadline
	ErrTimeout = errors.New("request timed out")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded
	ErrMalformedResponse = errors.New("malformed response from server")
)

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is the backend rejecting the caller's credentials
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// Client talks to the try-on and account backend
type Client struct {
	baseURL      string
	tryOnPath    string
	httpClient   *http.Client
	tryOnTimeout time.Duration
	authTimeout  time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTryOnPath overrides the try-on endpoint path
func WithTryOnPath(path string) Option {
	return func(c *Client) { c.tryOnPath = path }
}

// WithTimeouts sets the per-call deadlines for try-on and account calls
func WithTimeouts(tryOn, auth time.Duration) Option {
	return func(c *Client) {
		c.tryOnTimeout = tryOn
		c.authTimeout = auth
	}
}

// NewClient creates a Client for the backend at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		tryOnPath:    "/api/v1/virtual-tryon",
		httpClient:   &http.Client{Transport: &utils.LatencyTransport{}},
		tryOnTimeout: 120 * time.Second,
		authTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

type callOptions struct {
	token   string
	headers map[string]string
	timeout time.Duration
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}, co callOptions) error {
	if co.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, co.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if co.token != "" {
		req.Header.Set("Authorization", "Bearer "+co.token)
	}
	for k, v := range co.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, co.timeout)
		}
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, co.timeout)
		}
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := utils.ErrorMessageFromBody(respBody)
		if msg == "" {
			msg = utils.HTTPStatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
