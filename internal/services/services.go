package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/desertthunder/tunebox/internal/shared"
)

const userAgent = "tunebox/1.0"

// newClient builds a resty client with the shared defaults: no retries, a fixed timeout and a user agent.
func newClient(baseURL string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	return client
}

// decode unmarshals a response body regardless of its declared content type.
func decode(resp *resty.Response, v any) error {
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("%w: invalid JSON from %s: %v", shared.ErrUpstream, resp.Request.URL, err)
	}
	return nil
}

// ensureOK wraps transport errors and non-2xx responses with [shared.ErrUpstream].
func ensureOK(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s returned %s", shared.ErrUpstream, resp.Request.URL, resp.Status())
	}
	return nil
}
