// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/matrix"
	sdkHttp "github.com/nordeck/matrix-neoboard-standalone-sub001/sdk/http"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize int64 = 4 << 20

// doJSON sends in (when not nil) as JSON and decodes a 2xx JSON response into
// out. Failures wrap ErrRequestFailed, a *StatusError or ErrMalformedJSON.
func doJSON(ctx context.Context, client *http.Client, method, url string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("unable to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("unable to create request for %q: %w: %w", url, ErrInvalidParameter, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, url, ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("unable to read response from %s: %w: %w", url, ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unable to decode response from %s: %w: %w", url, ErrMalformedJSON, err)
	}
	return nil
}

// classify maps an error from the matrix client onto the request categories.
func classify(err error) error {
	var mErr *matrix.Error
	switch {
	case errors.Is(err, matrix.ErrRequestFailed):
		return ErrRequestFailed
	case errors.As(err, &mErr):
		return ErrResponseNotOK
	case errors.Is(err, matrix.ErrMalformedResponse):
		return ErrMalformedJSON
	case errors.Is(err, ErrRequestFailed), errors.Is(err, ErrResponseNotOK), errors.Is(err, ErrMalformedJSON):
		return nil
	default:
		return ErrInvalidParameter
	}
}

// httpClient returns c, or a new pooled client when c is nil.
func httpClient(c *http.Client) (*http.Client, error) {
	if c != nil {
		return c, nil
	}
	return sdkHttp.NewClient("")
}

// wrapRequestError wraps err with outer and, when err is not already
// categorized, the request category it belongs to.
func wrapRequestError(op, msg string, outer, err error) error {
	if category := classify(err); category != nil {
		return fmt.Errorf("%s: %s: %w: %w: %w", op, msg, outer, category, err)
	}
	return fmt.Errorf("%s: %s: %w: %w", op, msg, outer, err)
}
