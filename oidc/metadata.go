// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/matrix"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/oidc/internal/strutils"
	sdkHttp "github.com/nordeck/matrix-neoboard-standalone-sub001/sdk/http"
)

// AuthMetadata is the OAuth 2.0 authorization server metadata (RFC 8414)
// of a homeserver's auth issuer, plus the issuer's signing keys.
type AuthMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint,omitempty"`
	RevocationEndpoint                string   `json:"revocation_endpoint,omitempty"`
	DeviceAuthorizationEndpoint       string   `json:"device_authorization_endpoint,omitempty"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI                           string   `json:"jwks_uri"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	ResponseModesSupported            []string `json:"response_modes_supported,omitempty"`
	GrantTypesSupported               []string `json:"grant_types_supported,omitempty"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported,omitempty"`
	PromptValuesSupported             []string `json:"prompt_values_supported,omitempty"`
	AccountManagementURI              string   `json:"account_management_uri,omitempty"`
	AccountManagementActionsSupported []string `json:"account_management_actions_supported,omitempty"`
	IdTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported,omitempty"`

	// SigningKeys is the issuer's key set. Once fetched it is never nil.
	SigningKeys []jose.JSONWebKey `json:"-"`
}

// Validate checks the metadata is usable for an authorization code flow. The
// returned error is a *multierror.Error listing every problem.
func (m *AuthMetadata) Validate() error {
	var result *multierror.Error
	requireURL := func(name, value string) {
		if !isHTTPURL(value) {
			result = multierror.Append(result, fmt.Errorf("%s %q is not a valid URL", name, value))
		}
	}
	requireURL("issuer", m.Issuer)
	requireURL("authorization_endpoint", m.AuthorizationEndpoint)
	requireURL("token_endpoint", m.TokenEndpoint)
	requireURL("jwks_uri", m.JWKSURI)
	if m.RegistrationEndpoint != "" {
		requireURL("registration_endpoint", m.RegistrationEndpoint)
	}
	if !strutils.StrListContains(m.ResponseTypesSupported, "code") {
		result = multierror.Append(result, errors.New(`response_types_supported does not include "code"`))
	}
	if len(m.GrantTypesSupported) > 0 && !strutils.StrListContains(m.GrantTypesSupported, "authorization_code") {
		result = multierror.Append(result, errors.New(`grant_types_supported does not include "authorization_code"`))
	}
	if len(m.ResponseModesSupported) > 0 && !strutils.StrListContains(m.ResponseModesSupported, "query") {
		result = multierror.Append(result, errors.New(`response_modes_supported does not include "query"`))
	}
	return result.ErrorOrNil()
}

// SupportsChallengeMethod reports whether the issuer advertises the PKCE
// method.
func (m *AuthMetadata) SupportsChallengeMethod(method ChallengeMethod) bool {
	return strutils.StrListContains(m.CodeChallengeMethodsSupported, string(method))
}

// SupportsPrompt reports whether the issuer advertises the prompt value.
func (m *AuthMetadata) SupportsPrompt(prompt string) bool {
	return strutils.StrListContains(m.PromptValuesSupported, prompt)
}

// signingAlgs returns the algorithms id_tokens may be signed with.
func (m *AuthMetadata) signingAlgs() []string {
	if len(m.IdTokenSigningAlgValuesSupported) > 0 {
		return m.IdTokenSigningAlgValuesSupported
	}
	algs := make([]string, 0, len(m.SigningKeys))
	for _, k := range m.SigningKeys {
		if k.Algorithm != "" {
			algs = append(algs, k.Algorithm)
		}
	}
	if len(algs) == 0 {
		return []string{oidc.RS256}
	}
	return strutils.RemoveDuplicatesStable(algs, false)
}

// Provider builds a go-oidc provider from the metadata without another
// discovery round trip. The http client for later requests is taken from
// ctx (see sdk/http.ClientContext).
func (m *AuthMetadata) Provider(ctx context.Context) *oidc.Provider {
	cfg := &oidc.ProviderConfig{
		IssuerURL:     m.Issuer,
		AuthURL:       m.AuthorizationEndpoint,
		TokenURL:      m.TokenEndpoint,
		DeviceAuthURL: m.DeviceAuthorizationEndpoint,
		UserInfoURL:   m.UserinfoEndpoint,
		JWKSURL:       m.JWKSURI,
		Algorithms:    m.signingAlgs(),
	}
	return cfg.NewProvider(ctx)
}

// Verifier returns an id_token verifier for clientID that checks signatures
// against SigningKeys.
func (m *AuthMetadata) Verifier(clientID string, now func() time.Time) *oidc.IDTokenVerifier {
	keys := make([]crypto.PublicKey, 0, len(m.SigningKeys))
	for _, k := range m.SigningKeys {
		if k.IsPublic() {
			keys = append(keys, k.Key)
			continue
		}
		keys = append(keys, k.Public().Key)
	}
	return oidc.NewVerifier(m.Issuer, &oidc.StaticKeySet{PublicKeys: keys}, &oidc.Config{
		ClientID:             clientID,
		SupportedSigningAlgs: m.signingAlgs(),
		Now:                  now,
	})
}

// FetchAuthMetadata returns the auth metadata of the homeserver at
// homeserverURL.
//
// It first asks the homeserver's auth_metadata endpoint. When the homeserver
// does not support it, the issuer from the unstable auth_issuer endpoint is
// used for OpenID discovery instead. The metadata is validated and the
// issuer's signing keys are fetched from jwks_uri.
//
// Every error matches ErrMetadataFetchFailed and one of ErrRequestFailed (see
// IsRetryable), ErrResponseNotOK, ErrMalformedJSON or ErrInvalidMetadata.
//
// Supported options:
//   - WithHTTPClient
//   - WithLogger
func FetchAuthMetadata(ctx context.Context, homeserverURL string, opt ...Option) (*AuthMetadata, error) {
	const op = "oidc.FetchAuthMetadata"
	opts := getFetchOpts(opt...)
	client, err := httpClient(opts.withHTTPClient)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w: %w", op, ErrMetadataFetchFailed, err)
	}
	mc, err := matrix.NewClient(homeserverURL, matrix.WithHTTPClient(client), matrix.WithLogger(opts.withLogger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w: %w", op, ErrMetadataFetchFailed, ErrInvalidParameter, err)
	}
	defer mc.Close()

	var md *AuthMetadata
	raw, err := mc.AuthMetadata(ctx)
	switch {
	case err == nil:
		md = &AuthMetadata{}
		if err := json.Unmarshal(raw, md); err != nil {
			return nil, fmt.Errorf("%s: unable to decode auth metadata: %w: %w: %w", op, ErrMetadataFetchFailed, ErrMalformedJSON, err)
		}
	case matrix.IsUnsupported(err):
		opts.withLogger.Debug("homeserver has no auth_metadata endpoint, using auth_issuer discovery", "homeserver", homeserverURL)
		if md, err = discoverFromIssuer(ctx, mc, client, opts.withLogger); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		return nil, wrapRequestError(op, "unable to get auth metadata", ErrMetadataFetchFailed, err)
	}

	if err := md.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w: %w", op, ErrMetadataFetchFailed, ErrInvalidMetadata, err)
	}

	keys, err := fetchSigningKeys(ctx, client, md.JWKSURI)
	if err != nil {
		return nil, wrapRequestError(op, "unable to get signing keys", ErrMetadataFetchFailed, err)
	}
	md.SigningKeys = keys
	opts.withLogger.Debug("fetched auth metadata", "homeserver", homeserverURL, "issuer", md.Issuer, "signing_keys", len(keys))
	return md, nil
}

// discoverFromIssuer gets the issuer from the homeserver and performs OpenID
// discovery against it.
func discoverFromIssuer(ctx context.Context, mc *matrix.Client, client *http.Client, logger hclog.Logger) (*AuthMetadata, error) {
	const op = "oidc.discoverFromIssuer"
	issuer, err := mc.AuthIssuer(ctx)
	if err != nil {
		return nil, wrapRequestError(op, "unable to get auth issuer", ErrMetadataFetchFailed, err)
	}
	if !isHTTPURL(issuer) {
		return nil, fmt.Errorf("%s: issuer %q is not a valid URL: %w: %w", op, issuer, ErrMetadataFetchFailed, ErrInvalidMetadata)
	}
	wellKnown := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
	logger.Debug("fetching openid configuration", "url", wellKnown)

	md := &AuthMetadata{}
	if err := doJSON(ctx, client, http.MethodGet, wellKnown, nil, md); err != nil {
		return nil, wrapRequestError(op, "unable to get openid configuration", ErrMetadataFetchFailed, err)
	}
	if md.Issuer != issuer {
		return nil, fmt.Errorf("%s: openid configuration issuer %q does not match %q: %w: %w", op, md.Issuer, issuer, ErrMetadataFetchFailed, ErrInvalidMetadata)
	}
	return md, nil
}

func fetchSigningKeys(ctx context.Context, client *http.Client, jwksURI string) ([]jose.JSONWebKey, error) {
	var set jose.JSONWebKeySet
	if err := doJSON(ctx, client, http.MethodGet, jwksURI, nil, &set); err != nil {
		return nil, err
	}
	if set.Keys == nil {
		return []jose.JSONWebKey{}, nil
	}
	return set.Keys, nil
}

// isHTTPURL reports whether s is an absolute http(s) URL with a host.
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

// fetchOptions is the set of available options for FetchAuthMetadata
type fetchOptions struct {
	withHTTPClient *http.Client
	withLogger     hclog.Logger
}

// fetchDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func fetchDefaults() fetchOptions {
	return fetchOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getFetchOpts gets the defaults and applies the opt overrides passed in
func getFetchOpts(opt ...Option) fetchOptions {
	opts := fetchDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}

// clientContext returns ctx carrying client for go-oidc and oauth2.
func clientContext(ctx context.Context, client *http.Client) context.Context {
	return sdkHttp.ClientContext(ctx, client)
}
