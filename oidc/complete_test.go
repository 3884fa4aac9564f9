// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppURL = "https://board.example.com/"

// testStartFlow registers a client with tp, starts an authorization flow and
// plays the user agent. It returns the client id and the URL the provider
// redirected back to.
func testStartFlow(t *testing.T, tp *TestProvider, storage credentials.Storage) (string, *url.URL) {
	t.Helper()
	require := require.New(t)
	ctx := context.Background()
	md, err := FetchAuthMetadata(ctx, tp.Addr(), WithHTTPClient(tp.HTTPClient()))
	require.NoError(err)
	cm, err := NewClientMetadata(testAppURL)
	require.NoError(err)
	clientID, err := RegisterClient(ctx, md, cm, WithHTTPClient(tp.HTTPClient()))
	require.NoError(err)
	nav := &TestNavigator{}
	require.NoError(StartAuthorization(ctx, md, clientID, tp.Addr(),
		WithStorage(storage), WithNavigator(nav), WithRedirectURL(testAppURL)))
	return clientID, tp.Authorize(t, nav.Last())
}

func TestCompleteAuthorization(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		storage := credentials.NewMemoryStorage()
		clientID, redirect := testStartFlow(t, tp, storage)
		assert.True(strings.HasPrefix(redirect.String(), testAppURL))
		authReq := tp.LastAuthRequest()

		res, err := CompleteAuthorization(ctx, redirect.Query().Get("code"), redirect.Query().Get("state"),
			WithStorage(storage), WithHTTPClient(tp.HTTPClient()))
		require.NoError(err)
		assert.True(res.IsOidc())
		assert.True(tp.HasSession(string(res.AccessToken)))
		assert.NotEmpty(res.RefreshToken)
		assert.WithinDuration(time.Now().Add(300*time.Second), res.Expiry, 10*time.Second)
		assert.Equal(tp.Addr(), res.HomeserverURL)
		assert.Equal(tp.Issuer(), res.Issuer)
		assert.Equal(clientID, res.ClientID)
		assert.NotEmpty(res.IdToken)
		assert.Equal(strings.TrimPrefix(strings.Fields(authReq.Get("scope"))[2], ScopeMatrixDevicePrefix), res.DeviceID)

		require.NotNil(res.IdTokenClaims)
		assert.Equal(tp.Subject(), res.IdTokenClaims.Subject)
		assert.Equal(tp.Issuer(), res.IdTokenClaims.Issuer)
		assert.True(res.IdTokenClaims.Audience.Contains(clientID))
		assert.Equal(authReq.Get("nonce"), res.IdTokenClaims.Nonce)
		assert.NoError(res.OidcCredentials().Validate())

		_, ok, err := storage.Get(ctx, FlowStateKey)
		require.NoError(err)
		assert.False(ok, "flow must be removed")
	})
	t.Run("single-use", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		storage := credentials.NewMemoryStorage()
		_, redirect := testStartFlow(t, tp, storage)
		code, state := redirect.Query().Get("code"), redirect.Query().Get("state")
		_, err := CompleteAuthorization(ctx, code, state, WithStorage(storage), WithHTTPClient(tp.HTTPClient()))
		require.NoError(err)
		_, err = CompleteAuthorization(ctx, code, state, WithStorage(storage), WithHTTPClient(tp.HTTPClient()))
		assert.ErrorIs(err, ErrCompletionFailed)
		assert.ErrorIs(err, ErrFlowNotFound)
	})

	tests := []struct {
		name    string
		setup   func(tp *TestProvider)
		modify  func(code, state string) (string, string)
		opt     []Option
		wantErr error
	}{
		{
			name:    "state-mismatch",
			modify:  func(code, _ string) (string, string) { return code, "forged" },
			wantErr: ErrResponseStateInvalid,
		},
		{
			name:    "expired",
			opt:     []Option{WithNow(func() time.Time { return time.Now().Add(time.Hour) })},
			wantErr: ErrExpiredFlow,
		},
		{
			name:    "bad-code",
			modify:  func(_, state string) (string, string) { return "bogus", state },
			wantErr: ErrTokenExchangeFailed,
		},
		{
			name:    "missing-code",
			modify:  func(_, state string) (string, string) { return "", state },
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "missing-id-token",
			setup:   func(tp *TestProvider) { tp.OmitIDTokens() },
			wantErr: ErrMissingIdToken,
		},
		{
			name:    "wrong-nonce",
			setup:   func(tp *TestProvider) { tp.SetCustomClaims(map[string]interface{}{"nonce": "not-the-nonce"}) },
			wantErr: ErrInvalidNonce,
		},
		{
			name:    "wrong-audience",
			setup:   func(tp *TestProvider) { tp.SetCustomAudience("someone-else") },
			wantErr: ErrIdTokenVerificationFailed,
		},
		{
			name:    "no-signing-keys",
			setup:   func(tp *TestProvider) { tp.EmptyKeys() },
			wantErr: ErrIdTokenVerificationFailed,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			tp := StartTestProvider(t)
			storage := credentials.NewMemoryStorage()
			_, redirect := testStartFlow(t, tp, storage)
			if tt.setup != nil {
				tt.setup(tp)
			}
			code, state := redirect.Query().Get("code"), redirect.Query().Get("state")
			if tt.modify != nil {
				code, state = tt.modify(code, state)
			}
			opts := append([]Option{WithStorage(storage), WithHTTPClient(tp.HTTPClient())}, tt.opt...)
			res, err := CompleteAuthorization(ctx, code, state, opts...)
			require.Error(err)
			assert.Nil(res)
			assert.ErrorIs(err, ErrCompletionFailed)
			assert.ErrorIs(err, tt.wantErr)

			_, ok, err := storage.Get(ctx, FlowStateKey)
			require.NoError(err)
			assert.False(ok, "flow must be removed even on failure")
		})
	}

	t.Run("no-flow", func(t *testing.T) {
		assert := assert.New(t)
		_, err := CompleteAuthorization(ctx, "code", "state", WithStorage(credentials.NewMemoryStorage()))
		assert.ErrorIs(err, ErrCompletionFailed)
		assert.ErrorIs(err, ErrFlowNotFound)
	})
	t.Run("no-storage", func(t *testing.T) {
		assert := assert.New(t)
		_, err := CompleteAuthorization(ctx, "code", "state")
		assert.ErrorIs(err, ErrCompletionFailed)
		assert.ErrorIs(err, ErrNilParameter)
	})
}

func TestCompleteAuthorizationRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		storage := credentials.NewMemoryStorage()
		_, redirect := testStartFlow(t, tp, storage)
		req := httptest.NewRequest(http.MethodGet, redirect.String(), nil)
		res, err := CompleteAuthorizationRequest(ctx, req, WithStorage(storage), WithHTTPClient(tp.HTTPClient()))
		require.NoError(err)
		assert.Equal(tp.Subject(), res.IdTokenClaims.Subject)
	})
	t.Run("denied", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.DenyAuthorization()
		storage := credentials.NewMemoryStorage()
		_, redirect := testStartFlow(t, tp, storage)
		assert.Equal("access_denied", redirect.Query().Get("error"))

		req := httptest.NewRequest(http.MethodGet, redirect.String(), nil)
		_, err := CompleteAuthorizationRequest(ctx, req, WithStorage(storage), WithHTTPClient(tp.HTTPClient()))
		require.Error(err)
		assert.ErrorIs(err, ErrCompletionFailed)
		assert.ErrorIs(err, ErrAuthorizationDenied)
		assert.Contains(err.Error(), "The user denied the request")

		_, ok, err := storage.Get(ctx, FlowStateKey)
		require.NoError(err)
		assert.False(ok)
	})
	t.Run("nil-request", func(t *testing.T) {
		_, err := CompleteAuthorizationRequest(ctx, nil)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
}
