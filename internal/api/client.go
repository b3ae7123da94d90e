// Package api implements the HTTP transport against the clinical backend.
// It builds authenticated requests and normalizes every failure into a single
// *RequestError shape so callers never branch on raw status codes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinicops/internal/logging"

	"github.com/google/uuid"
)

// Credentials supplies the base URL and bearer token for requests. The store
// owning them lives in internal/auth; the transport only ever reads.
type Credentials interface {
	APIBase() string
	Token() string
}

// Client is the HTTP transport for the clinical backend.
type Client struct {
	creds      Credentials
	httpClient *http.Client
}

// NewClient creates a transport bound to a credential source.
func NewClient(creds Credentials) *Client {
	return &Client{
		creds: creds,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type requestOptions struct {
	tokenOverride    string
	hasTokenOverride bool
}

// RequestOption customizes a single request.
type RequestOption func(*requestOptions)

// WithTokenOverride forces the Authorization header to use the given token
// instead of the stored one. An empty override sends no header at all; the
// login call uses this so it never carries a stale token.
func WithTokenOverride(token string) RequestOption {
	return func(o *requestOptions) {
		o.tokenOverride = token
		o.hasTokenOverride = true
	}
}

// do issues one request. body may be nil, url.Values (form-encoded) or any
// JSON-marshalable value. out may be nil to discard the response body.
// A 204 resolves to success without attempting a decode.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}, opts ...RequestOption) error {
	var options requestOptions
	for _, opt := range opts {
		opt(&options)
	}

	var reader io.Reader
	contentType := ""
	switch payload := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(payload.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.creds.APIBase()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	token := c.creds.Token()
	if options.hasTokenOverride {
		token = options.tokenOverride
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	logging.APIDebug("[%s] %s %s", requestID, method, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.APIError("[%s] %s %s transport failure: %v", requestID, method, path, err)
		return &RequestError{Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logging.APIError("[%s] %s %s body read failure: %v", requestID, method, path, err)
		return &RequestError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := formatErrorBody(resp.StatusCode, http.StatusText(resp.StatusCode), respBody)
		logging.APIError("[%s] %s %s -> %d: %s", requestID, method, path, resp.StatusCode, message)
		return &RequestError{Status: resp.StatusCode, Message: message}
	}

	logging.API("[%s] %s %s -> %d in %v", requestID, method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		logging.APIError("[%s] %s %s decode failure: %v", requestID, method, path, err)
		return &RequestError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	return nil
}
