// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/matrix"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "request-failed", err: fmt.Errorf("op: %w: %w", ErrMetadataFetchFailed, ErrRequestFailed), want: true},
		{name: "status", err: fmt.Errorf("op: %w: %w", ErrMetadataFetchFailed, &StatusError{URL: "https://example.com", StatusCode: 500}), want: false},
		{name: "malformed", err: fmt.Errorf("op: %w", ErrMalformedJSON), want: false},
		{name: "invalid-metadata", err: ErrInvalidMetadata, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	err := fmt.Errorf("wrapped: %w", &StatusError{URL: "https://example.com/jwks", StatusCode: 404})
	assert.ErrorIs(err, ErrResponseNotOK)
	assert.False(errors.Is(err, ErrRequestFailed))

	var sErr *StatusError
	assert.True(errors.As(err, &sErr))
	assert.Equal(404, sErr.StatusCode)
	assert.Contains(err.Error(), "https://example.com/jwks answered with status 404")
}

func Test_wrapRequestError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		err     error
		wantIs  []error
		wantNot []error
	}{
		{
			name:    "matrix-network",
			err:     fmt.Errorf("get: %w", matrix.ErrRequestFailed),
			wantIs:  []error{ErrMetadataFetchFailed, ErrRequestFailed},
			wantNot: []error{ErrResponseNotOK, ErrMalformedJSON},
		},
		{
			name:    "matrix-error-response",
			err:     fmt.Errorf("get: %w", &matrix.Error{Code: matrix.ErrCodeUnknown, StatusCode: 500}),
			wantIs:  []error{ErrMetadataFetchFailed, ErrResponseNotOK},
			wantNot: []error{ErrRequestFailed},
		},
		{
			name:    "matrix-malformed",
			err:     fmt.Errorf("get: %w", matrix.ErrMalformedResponse),
			wantIs:  []error{ErrMetadataFetchFailed, ErrMalformedJSON},
			wantNot: []error{ErrRequestFailed},
		},
		{
			name:    "already-categorized",
			err:     &StatusError{URL: "https://example.com", StatusCode: 502},
			wantIs:  []error{ErrMetadataFetchFailed, ErrResponseNotOK},
			wantNot: []error{ErrInvalidParameter},
		},
		{
			name:    "other",
			err:     errors.New("boom"),
			wantIs:  []error{ErrMetadataFetchFailed, ErrInvalidParameter},
			wantNot: []error{ErrRequestFailed},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)
			got := wrapRequestError("oidc.Test", "failed", ErrMetadataFetchFailed, tt.err)
			for _, want := range tt.wantIs {
				assert.ErrorIs(got, want)
			}
			for _, not := range tt.wantNot {
				assert.NotErrorIs(got, not)
			}
			assert.Contains(got.Error(), "oidc.Test: failed")
		})
	}
}
