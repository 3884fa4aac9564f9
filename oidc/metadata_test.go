// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidMetadata() AuthMetadata {
	return AuthMetadata{
		Issuer:                        "https://auth.example.com/",
		AuthorizationEndpoint:         "https://auth.example.com/authorize",
		TokenEndpoint:                 "https://auth.example.com/oauth2/token",
		RegistrationEndpoint:          "https://auth.example.com/oauth2/registration",
		JWKSURI:                       "https://auth.example.com/oauth2/keys.json",
		ResponseTypesSupported:        []string{"code"},
		CodeChallengeMethodsSupported: []string{"S256"},
	}
}

func TestAuthMetadata_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		modify      func(*AuthMetadata)
		wantReasons int
	}{
		{name: "valid", modify: func(*AuthMetadata) {}},
		{name: "no-registration-is-fine", modify: func(m *AuthMetadata) { m.RegistrationEndpoint = "" }},
		{name: "optional-lists-ok", modify: func(m *AuthMetadata) {
			m.GrantTypesSupported = []string{"authorization_code"}
			m.ResponseModesSupported = []string{"query", "fragment"}
		}},
		{name: "relative-issuer", modify: func(m *AuthMetadata) { m.Issuer = "/issuer" }, wantReasons: 1},
		{name: "bad-registration", modify: func(m *AuthMetadata) { m.RegistrationEndpoint = "not a url" }, wantReasons: 1},
		{name: "no-code", modify: func(m *AuthMetadata) { m.ResponseTypesSupported = []string{"token"} }, wantReasons: 1},
		{name: "no-authorization-code-grant", modify: func(m *AuthMetadata) { m.GrantTypesSupported = []string{"client_credentials"} }, wantReasons: 1},
		{name: "no-query-mode", modify: func(m *AuthMetadata) { m.ResponseModesSupported = []string{"fragment"} }, wantReasons: 1},
		{name: "empty", modify: func(m *AuthMetadata) { *m = AuthMetadata{} }, wantReasons: 5},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			md := testValidMetadata()
			tt.modify(&md)
			err := md.Validate()
			if tt.wantReasons == 0 {
				assert.NoError(err)
				return
			}
			var mErr *multierror.Error
			require.True(errors.As(err, &mErr))
			assert.Len(mErr.Errors, tt.wantReasons)
		})
	}
}

func TestAuthMetadata_supports(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	md := testValidMetadata()
	assert.True(md.SupportsChallengeMethod(S256))
	assert.False(md.SupportsChallengeMethod("plain"))
	assert.False(md.SupportsPrompt(PromptCreate))
	md.PromptValuesSupported = []string{"login", "create"}
	assert.True(md.SupportsPrompt(PromptCreate))
}

func TestFetchAuthMetadata(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("auth-metadata", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		md, err := FetchAuthMetadata(ctx, tp.Addr(), WithHTTPClient(tp.HTTPClient()))
		require.NoError(err)
		assert.Equal(tp.Issuer(), md.Issuer)
		assert.Equal(tp.Addr()+testPathRegistration, md.RegistrationEndpoint)
		require.Len(md.SigningKeys, 1)
		assert.Equal(testKeyID, md.SigningKeys[0].KeyID)
		assert.Equal(1, tp.HitCount(testPathAuthMetadata))
		assert.Equal(0, tp.HitCount(testPathAuthIssuer))
	})
	t.Run("empty-keys", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.EmptyKeys()
		md, err := FetchAuthMetadata(ctx, tp.Addr(), WithHTTPClient(tp.HTTPClient()))
		require.NoError(err)
		assert.NotNil(md.SigningKeys)
		assert.Empty(md.SigningKeys)
	})
	t.Run("auth-issuer-fallback", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.DisableAuthMetadata()
		md, err := FetchAuthMetadata(ctx, tp.Addr(), WithHTTPClient(tp.HTTPClient()))
		require.NoError(err)
		assert.Equal(tp.Issuer(), md.Issuer)
		assert.Equal(1, tp.HitCount(testPathAuthIssuer))
		assert.Equal(1, tp.HitCount(testPathOpenIDConfig))
	})
	t.Run("unreachable-is-retryable", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		client, addr := tp.HTTPClient(), tp.Addr()
		tp.Stop()
		_, err := FetchAuthMetadata(ctx, addr, WithHTTPClient(client))
		require.Error(err)
		assert.ErrorIs(err, ErrMetadataFetchFailed)
		assert.ErrorIs(err, ErrRequestFailed)
		assert.True(IsRetryable(err))
	})
	t.Run("invalid-url", func(t *testing.T) {
		assert := assert.New(t)
		_, err := FetchAuthMetadata(ctx, "matrix.example.com")
		assert.ErrorIs(err, ErrMetadataFetchFailed)
		assert.ErrorIs(err, ErrInvalidParameter)
		assert.False(IsRetryable(err))
	})

	serve := func(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
		t.Helper()
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h, ok := routes[r.URL.Path]; ok {
				h(w, r)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(srv.Close)
		return srv
	}
	writeJSON := func(status int, body interface{}) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		}
	}

	t.Run("server-error", func(t *testing.T) {
		assert := assert.New(t)
		srv := serve(t, map[string]http.HandlerFunc{
			testPathAuthMetadata: writeJSON(http.StatusInternalServerError, map[string]string{"errcode": "M_UNKNOWN"}),
		})
		_, err := FetchAuthMetadata(ctx, srv.URL, WithHTTPClient(srv.Client()))
		assert.ErrorIs(err, ErrMetadataFetchFailed)
		assert.ErrorIs(err, ErrResponseNotOK)
		assert.False(IsRetryable(err))
	})
	t.Run("malformed-json", func(t *testing.T) {
		assert := assert.New(t)
		srv := serve(t, map[string]http.HandlerFunc{
			testPathAuthMetadata: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"issuer": `))
			},
		})
		_, err := FetchAuthMetadata(ctx, srv.URL, WithHTTPClient(srv.Client()))
		assert.ErrorIs(err, ErrMetadataFetchFailed)
		assert.ErrorIs(err, ErrMalformedJSON)
	})
	t.Run("invalid-metadata", func(t *testing.T) {
		assert := assert.New(t)
		md := testValidMetadata()
		md.ResponseTypesSupported = []string{"id_token"}
		srv := serve(t, map[string]http.HandlerFunc{
			testPathAuthMetadata: writeJSON(http.StatusOK, md),
		})
		_, err := FetchAuthMetadata(ctx, srv.URL, WithHTTPClient(srv.Client()))
		assert.ErrorIs(err, ErrMetadataFetchFailed)
		assert.ErrorIs(err, ErrInvalidMetadata)
	})
	t.Run("keys-not-found", func(t *testing.T) {
		assert := assert.New(t)
		var srv *httptest.Server
		srv = serve(t, map[string]http.HandlerFunc{
			testPathAuthMetadata: func(w http.ResponseWriter, r *http.Request) {
				md := testValidMetadata()
				md.JWKSURI = srv.URL + "/missing.json"
				writeJSON(http.StatusOK, md)(w, r)
			},
		})
		_, err := FetchAuthMetadata(ctx, srv.URL, WithHTTPClient(srv.Client()))
		assert.ErrorIs(err, ErrMetadataFetchFailed)
		assert.ErrorIs(err, ErrResponseNotOK)
	})
	t.Run("issuer-mismatch", func(t *testing.T) {
		assert := assert.New(t)
		var srv *httptest.Server
		srv = serve(t, map[string]http.HandlerFunc{
			testPathAuthIssuer: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(http.StatusOK, map[string]string{"issuer": srv.URL + "/"})(w, r)
			},
			testPathOpenIDConfig: writeJSON(http.StatusOK, testValidMetadata()),
		})
		_, err := FetchAuthMetadata(ctx, srv.URL, WithHTTPClient(srv.Client()))
		assert.ErrorIs(err, ErrMetadataFetchFailed)
		assert.ErrorIs(err, ErrInvalidMetadata)
	})
}

func TestAuthMetadata_Verifier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)
	md, err := FetchAuthMetadata(ctx, tp.Addr(), WithHTTPClient(tp.HTTPClient()))
	require.NoError(err)

	now := time.Now()
	claims := jwt.Claims{
		Issuer:   md.Issuer,
		Subject:  "01HZ0ALICE",
		Audience: jwt.Audience{"01HZCLIENT"},
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(time.Minute)),
	}
	raw := TestSignJWT(t, tp.ecdsaPrivateKey, testKeyID, claims, map[string]interface{}{"nonce": "n0nce"})

	tok, err := md.Verifier("01HZCLIENT", time.Now).Verify(ctx, raw)
	require.NoError(err)
	assert.Equal("01HZ0ALICE", tok.Subject)
	assert.Equal("n0nce", tok.Nonce)

	_, err = md.Verifier("someone-else", time.Now).Verify(ctx, raw)
	assert.Error(err)

	_, err = md.Verifier("01HZCLIENT", func() time.Time { return now.Add(time.Hour) }).Verify(ctx, raw)
	assert.Error(err)

	_, otherPriv := TestGenerateKeys(t)
	forged := TestSignJWT(t, otherPriv, testKeyID, claims, nil)
	_, err = md.Verifier("01HZCLIENT", time.Now).Verify(ctx, forged)
	assert.Error(err)
}

func TestAuthMetadata_Provider(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	md := testValidMetadata()
	md.UserinfoEndpoint = "https://auth.example.com/oauth2/userinfo"

	p := md.Provider(context.Background())
	endpoint := p.Endpoint()
	assert.Equal(md.AuthorizationEndpoint, endpoint.AuthURL)
	assert.Equal(md.TokenEndpoint, endpoint.TokenURL)
	assert.Equal(md.UserinfoEndpoint, p.UserInfoEndpoint())
}
