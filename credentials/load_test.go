// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name      string
		stored    *string
		want      *MatrixCredentials
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "absent",
		},
		{
			name:   "valid",
			stored: strPtr(`{"userId":"@alice:example.org","deviceId":"DEVICE"}`),
			want:   &MatrixCredentials{UserID: "@alice:example.org", DeviceID: "DEVICE"},
		},
		{
			name:      "malformed-json",
			stored:    strPtr(`{"userId":`),
			wantErr:   true,
			wantIsErr: ErrValidationFailed,
		},
		{
			name:      "schema-failure",
			stored:    strPtr(`{"userId":"alice"}`),
			wantErr:   true,
			wantIsErr: ErrValidationFailed,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			s := NewMemoryStorage()
			if tt.stored != nil {
				require.NoError(s.Set(ctx, MatrixCredentialsKey, []byte(*tt.stored)))
			}

			got, err := LoadValidated[MatrixCredentials](ctx, s, MatrixCredentialsKey)
			if tt.wantErr {
				require.Error(err)
				assert.Nil(got)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				var vErr *ValidationError
				require.True(errors.As(err, &vErr))
				assert.Equal(MatrixCredentialsKey, vErr.Key)
				assert.NotEmpty(vErr.Reasons())

				// the defensive loader returns nil and warns instead
				var buf bytes.Buffer
				logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Warn})
				assert.Nil(TryLoadValidated[MatrixCredentials](ctx, s, MatrixCredentialsKey, WithLogger(logger)))
				assert.Contains(buf.String(), "ignoring stored value")
				assert.Contains(buf.String(), MatrixCredentialsKey)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
			assert.Equal(tt.want, TryLoadValidated[MatrixCredentials](ctx, s, MatrixCredentialsKey))
		})
	}

	t.Run("schema-reasons", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := NewMemoryStorage()
		require.NoError(s.Set(ctx, MatrixClientCredentialsKey, []byte(`{"homeserverUrl":"nope"}`)))
		_, err := LoadValidated[MatrixClientCredentials](ctx, s, MatrixClientCredentialsKey)
		var vErr *ValidationError
		require.True(errors.As(err, &vErr))
		assert.Len(vErr.Reasons(), 2)
	})
	t.Run("nil-storage", func(t *testing.T) {
		_, err := LoadValidated[MatrixCredentials](ctx, nil, MatrixCredentialsKey)
		assert.ErrorIs(t, err, ErrNilParameter)
		assert.Nil(t, TryLoadValidated[MatrixCredentials](ctx, nil, MatrixCredentialsKey))
	})
}

func TestSaveValidated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s := NewMemoryStorage()

	err := SaveValidated(ctx, s, MatrixCredentialsKey, &MatrixCredentials{UserID: "alice"})
	require.Error(err)
	assert.ErrorIs(err, ErrValidationFailed)
	_, ok, err := s.Get(ctx, MatrixCredentialsKey)
	require.NoError(err)
	assert.False(ok, "invalid values must not be stored")

	require.NoError(SaveValidated(ctx, s, MatrixCredentialsKey, &MatrixCredentials{UserID: "@alice:example.org", DeviceID: "D"}))
	raw, ok, err := s.Get(ctx, MatrixCredentialsKey)
	require.NoError(err)
	assert.True(ok)
	assert.JSONEq(`{"userId":"@alice:example.org","deviceId":"D"}`, string(raw))
}

func strPtr(s string) *string { return &s }
