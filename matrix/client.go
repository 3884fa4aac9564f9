// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	sdkHttp "github.com/nordeck/matrix-neoboard-standalone-sub001/sdk/http"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize int64 = 8 << 20

// Client is a transient client for one homeserver, optionally bound to an
// access token. Close must be called when it is no longer needed.
type Client struct {
	baseURL           string
	httpClient        *http.Client
	ownsHTTPClient    bool
	logger            hclog.Logger
	deviceDisplayName string

	mu          sync.Mutex
	accessToken string
	closed      bool
}

// NewClient creates a Client for the homeserver base URL.
// Supported options:
//   - WithHTTPClient
//   - WithLogger
//   - WithAccessToken
//   - WithDeviceDisplayName
func NewClient(homeserverURL string, opt ...Option) (*Client, error) {
	const op = "matrix.NewClient"
	if homeserverURL == "" {
		return nil, fmt.Errorf("%s: homeserver URL is empty: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(homeserverURL)
	if err != nil {
		return nil, fmt.Errorf("%s: homeserver URL %q is invalid: %w", op, homeserverURL, ErrInvalidParameter)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%s: homeserver URL %q is not an absolute http(s) URL: %w", op, homeserverURL, ErrInvalidParameter)
	}
	opts := getClientOpts(opt...)

	c := &Client{
		// request URLs are built by concatenation, so no trailing slash
		baseURL:           strings.TrimRight(homeserverURL, "/"),
		httpClient:        opts.withHTTPClient,
		logger:            opts.withLogger,
		accessToken:       opts.withAccessToken,
		deviceDisplayName: opts.withDeviceDisplayName,
	}
	if c.httpClient == nil {
		c.httpClient, err = sdkHttp.NewClient("")
		if err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
		c.ownsHTTPClient = true
	}
	return c, nil
}

// HomeserverURL returns the base URL without a trailing slash.
func (c *Client) HomeserverURL() string { return c.baseURL }

// Close forgets the access token and releases idle connections held by a
// transport the client created itself. It is safe to call more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.accessToken = ""
	if c.ownsHTTPClient {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

// doRequest sends a JSON request to the homeserver and decodes a 2xx JSON
// response into out (when out is not nil). Non-2xx responses are returned as
// an *Error.
func (c *Client) doRequest(ctx context.Context, method, path string, authenticated bool, in, out interface{}) error {
	const op = "matrix.(Client).doRequest"
	c.mu.Lock()
	closed, token := c.closed, c.accessToken
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("%s: %w", op, ErrClientClosed)
	}
	if authenticated && token == "" {
		return fmt.Errorf("%s: %s requires an access token: %w", op, path, ErrInvalidParameter)
	}

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: unable to encode request body: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s %s: %w: %w", op, method, path, ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: unable to read response body: %w: %w", op, ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		mErr := &Error{}
		if jsonErr := json.Unmarshal(respBody, mErr); jsonErr != nil {
			// not a Matrix error body; keep the status so callers can classify it
			mErr = &Error{}
		}
		mErr.StatusCode = resp.StatusCode
		c.logger.Debug("homeserver request failed", "method", method, "path", path, "status", resp.StatusCode, "errcode", mErr.Code)
		return fmt.Errorf("%s: %s %s: %w", op, method, path, mErr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: unable to decode %s response: %w: %w", op, path, ErrMalformedResponse, err)
	}
	return nil
}

// clientOptions is the set of available options for NewClient
type clientOptions struct {
	withHTTPClient        *http.Client
	withLogger            hclog.Logger
	withAccessToken       string
	withDeviceDisplayName string
}

// clientDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func clientDefaults() clientOptions {
	return clientOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getClientOpts gets the client defaults and applies the opt overrides passed
// in
func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}
