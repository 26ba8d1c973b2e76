package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// MaxConcurrentRequests is the default ceiling on concurrent API requests
	MaxConcurrentRequests = 10
	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 100
)

// HTTPClient interface for HTTP operations (allows mocking in tests).
// Follows Interface Segregation Principle.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: API returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// BaseClient contains common fields and functionality for all API clients.
// Follows DRY principle by extracting shared code.
type BaseClient struct {
	BaseURL    string
	HTTPClient HTTPClient
	Semaphore  chan struct{} // Limits concurrent requests
	Logger     *slog.Logger

	// Authorize sets platform specific authentication and content headers.
	Authorize func(req *http.Request)
}

// NewBaseClient creates a new base client with a concurrency ceiling.
func NewBaseClient(config ClientConfig, httpClient HTTPClient, authorize func(req *http.Request)) *BaseClient {
	limit := config.MaxConcurrentRequests
	if limit <= 0 {
		limit = MaxConcurrentRequests
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &BaseClient{
		BaseURL:    config.BaseURL,
		HTTPClient: httpClient,
		Semaphore:  make(chan struct{}, limit),
		Logger:     logger,
		Authorize:  authorize,
	}
}

// DoRateLimited performs an operation while holding a semaphore slot.
// This method is used by platform-specific clients to wrap API calls.
func (c *BaseClient) DoRateLimited(ctx context.Context, fn func() error) error {
	select {
	case c.Semaphore <- struct{}{}:
		defer func() { <-c.Semaphore }()
	case <-ctx.Done():
		return ctx.Err()
	}

	return fn()
}

// Do sends a JSON request and decodes the JSON response into result.
// body and result may be nil. The response headers are returned for pagination.
func (c *BaseClient) Do(ctx context.Context, method, url string, body, result interface{}) (http.Header, error) {
	var header http.Header
	err := c.DoRateLimited(ctx, func() error {
		var err error
		header, err = c.do(ctx, method, url, body, result)
		return err
	})
	return header, err
}

// do performs a single HTTP round trip.
// Follows Single Level of Abstraction Principle (SLAP).
func (c *BaseClient) do(ctx context.Context, method, url string, body, result interface{}) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Authorize != nil {
		c.Authorize(req)
	}

	c.Logger.Debug("api request", slog.String("method", method), slog.String("url", url))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.Header, &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if result == nil {
		return resp.Header, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.Header, fmt.Errorf("failed to decode response: %w", err)
	}

	return resp.Header, nil
}
