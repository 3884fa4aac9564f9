// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomString(t *testing.T) {
	t.Parallel()
	alphanumeric := regexp.MustCompile(`^[A-Za-z0-9]+$`)
	tests := []struct {
		name    string
		n       int
		wantErr error
	}{
		{name: "nonce-length", n: 10},
		{name: "one", n: 1},
		{name: "long", n: 128},
		{name: "zero", n: 0, wantErr: ErrInvalidParameter},
		{name: "negative", n: -1, wantErr: ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := RandomString(tt.n)
			if tt.wantErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantErr)
				assert.Empty(got)
				return
			}
			require.NoError(err)
			assert.Len(got, tt.n)
			assert.Regexp(alphanumeric, got)
		})
	}
	t.Run("unique", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			got, err := RandomString(10)
			require.NoError(err)
			assert.False(seen[got], "duplicate %q", got)
			seen[got] = true
		}
	})
}

func TestNewState(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	s1, err := NewState()
	require.NoError(err)
	s2, err := NewState()
	require.NoError(err)
	assert.NotEmpty(s1)
	assert.NotEqual(s1, s2)
}
