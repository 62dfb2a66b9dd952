// Package external is the boundary between the weather aggregator and the
// third-party weather APIs. Every outbound call goes through BaseClient, which
// stamps request headers, performs a single attempt and maps failures to
// upstream AppErrors.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"clima/internal/types"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// BaseClient wraps an *http.Client shared by all providers. It holds no
// per-call state and is safe for concurrent use.
type BaseClient struct {
	client    *http.Client
	userAgent string
}

// NewBaseClient creates a BaseClient with the given http client and user
// agent string.
func NewBaseClient(httpClient *http.Client, userAgent string) *BaseClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BaseClient{client: httpClient, userAgent: userAgent}
}

// Do executes req exactly once. It injects the request ID from the context as
// X-Request-Id and sets the User-Agent.
//
// Any response other than 200 OK is closed and reported as an
// upstream_provider_unavailable AppError, as is any transport failure
// including context deadline expiry. On success the caller must close the
// response body.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if requestID := types.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamProviderUnavailable,
			"upstream request failed",
			scrubURLError(err, req.URL),
		)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, types.NewAppError(
			types.ErrCodeUpstreamProviderUnavailable,
			fmt.Sprintf("upstream returned %d", resp.StatusCode),
			fmt.Errorf("GET %s: status %d: %s", redactURL(req.URL), resp.StatusCode, body),
		).WithDetails(map[string]any{"status_code": resp.StatusCode})
	}

	return resp, nil
}

// GetJSON issues a GET to endpoint with query and decodes a 200 response into
// out. A body that is not a JSON object, or does not fit out, yields an
// upstream_malformed_payload AppError.
func (c *BaseClient) GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "invalid provider endpoint", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create provider request", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamMalformedPayload,
			"failed to decode provider response",
			err,
		)
	}

	// Every provider answers with an object; null or a bare value would
	// otherwise decode into an empty reading.
	if raw = bytes.TrimSpace(raw); len(raw) == 0 || raw[0] != '{' {
		return types.NewAppError(
			types.ErrCodeUpstreamMalformedPayload,
			"provider response is not a JSON object",
			fmt.Errorf("GET %s: unexpected body %.32q", redactURL(req.URL), raw),
		)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamMalformedPayload,
			"failed to decode provider response",
			err,
		)
	}
	return nil
}

// redactURL drops the query string, which carries provider API keys.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Scheme + "://" + u.Host + u.Path
}

// scrubURLError rewrites *url.Error so the wrapped error does not embed the
// full request URL. The underlying cause stays reachable via errors.Is.
func scrubURLError(err error, u *url.URL) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s %s: %w", urlErr.Op, redactURL(u), urlErr.Err)
	}
	return err
}
