// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
	"golang.org/x/oauth2"
	"golang.org/x/text/language"
)

// Scopes requested during authorization.
const (
	ScopeMatrixAPI          = "urn:matrix:org.matrix.msc2967.client:api:*"
	ScopeMatrixDevicePrefix = "urn:matrix:org.matrix.msc2967.client:device:"
)

// PromptCreate asks the authorization server to start with account
// registration.
const PromptCreate = "create"

const (
	nonceLen    = 10
	deviceIDLen = 10
)

// Scopes returns the scopes requested for a login with deviceID.
func Scopes(deviceID string) []string {
	return []string{oidc.ScopeOpenID, ScopeMatrixAPI, ScopeMatrixDevicePrefix + deviceID}
}

// StartAuthorization begins an authorization code flow with PKCE for
// clientID against the issuer described by md.
//
// It generates the nonce, state, device id and code verifier, stores them in
// the session storage, and then navigates to the authorization endpoint.
// Navigating is the last thing it does: once it returns nil the flow
// continues at the redirect URI with CompleteAuthorization. Any failure
// before navigating matches ErrRedirectConstructionFailed and leaves the
// navigator untouched.
//
// Supported options:
//   - WithStorage (required)
//   - WithNavigator (required)
//   - WithRedirectURL (required)
//   - WithRegistrationIntent
//   - WithUILocales
//   - WithFlowExpiry
//   - WithIdentityServerURL
//   - WithNow
//   - WithLogger
func StartAuthorization(ctx context.Context, md *AuthMetadata, clientID, homeserverURL string, opt ...Option) error {
	const op = "oidc.StartAuthorization"
	opts := getAuthorizeOpts(opt...)
	authURL, err := prepareAuthorization(ctx, md, clientID, homeserverURL, opts)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrRedirectConstructionFailed, err)
	}
	opts.withLogger.Debug("navigating to authorization endpoint", "issuer", md.Issuer, "client_id", clientID)
	if err := opts.withNavigator.Navigate(ctx, authURL); err != nil {
		return fmt.Errorf("%s: unable to navigate to authorization endpoint: %w", op, err)
	}
	return nil
}

// prepareAuthorization stores a new flow and returns the authorization URL.
func prepareAuthorization(ctx context.Context, md *AuthMetadata, clientID, homeserverURL string, opts authorizeOptions) (string, error) {
	switch {
	case md == nil:
		return "", fmt.Errorf("missing auth metadata: %w", ErrNilParameter)
	case opts.withStorage == nil:
		return "", fmt.Errorf("missing storage: %w", ErrNilParameter)
	case opts.withNavigator == nil:
		return "", fmt.Errorf("missing navigator: %w", ErrNilParameter)
	case clientID == "":
		return "", fmt.Errorf("missing client id: %w", ErrInvalidParameter)
	case !isHTTPURL(homeserverURL):
		return "", fmt.Errorf("homeserver URL %q is not valid: %w", homeserverURL, ErrInvalidParameter)
	case !md.SupportsChallengeMethod(S256):
		return "", fmt.Errorf("issuer %q does not support %s: %w", md.Issuer, S256, ErrUnsupportedChallengeMethod)
	case opts.withFlowExpiry <= 0:
		return "", fmt.Errorf("flow expiry must be greater than zero: %w", ErrInvalidParameter)
	}
	redirectURI, err := pageURL(opts.withRedirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}

	nonce, err := RandomString(nonceLen)
	if err != nil {
		return "", fmt.Errorf("unable to generate nonce: %w", err)
	}
	state, err := NewState()
	if err != nil {
		return "", fmt.Errorf("unable to generate state: %w", err)
	}
	deviceID, err := RandomString(deviceIDLen)
	if err != nil {
		return "", fmt.Errorf("unable to generate device id: %w", err)
	}
	verifier, err := NewCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("unable to generate code verifier: %w", err)
	}

	now := opts.withNowFunc()
	flow := &FlowState{
		State:             state,
		Nonce:             nonce,
		CodeVerifier:      verifier.Verifier(),
		RedirectURI:       redirectURI,
		HomeserverURL:     strings.TrimRight(homeserverURL, "/"),
		IdentityServerURL: opts.withIdentityServerURL,
		Issuer:            md.Issuer,
		ClientID:          clientID,
		DeviceID:          deviceID,
		CreatedAt:         now,
		ExpiresAt:         now.Add(opts.withFlowExpiry),
	}
	if err := saveFlow(ctx, opts.withStorage, flow); err != nil {
		return "", fmt.Errorf("unable to store flow state: %w", err)
	}

	cfg := oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  md.AuthorizationEndpoint,
			TokenURL: md.TokenEndpoint,
		},
		Scopes: Scopes(deviceID),
	}
	authOpts := []oauth2.AuthCodeOption{
		oidc.Nonce(nonce),
		oauth2.S256ChallengeOption(verifier.Verifier()),
		oauth2.SetAuthURLParam("response_mode", "query"),
	}
	if opts.withRegistrationIntent {
		if !md.SupportsPrompt(PromptCreate) {
			opts.withLogger.Warn("issuer does not advertise prompt=create, asking anyway", "issuer", md.Issuer)
		}
		authOpts = append(authOpts, oauth2.SetAuthURLParam("prompt", PromptCreate))
	}
	if len(opts.withUILocales) > 0 {
		locales := make([]string, 0, len(opts.withUILocales))
		for _, l := range opts.withUILocales {
			locales = append(locales, l.String())
		}
		authOpts = append(authOpts, oauth2.SetAuthURLParam("ui_locales", strings.Join(locales, " ")))
	}
	return cfg.AuthCodeURL(state, authOpts...), nil
}

// authorizeOptions is the set of available options for StartAuthorization
type authorizeOptions struct {
	withStorage            credentials.Storage
	withNavigator          Navigator
	withRedirectURL        string
	withRegistrationIntent bool
	withUILocales          []language.Tag
	withFlowExpiry         time.Duration
	withIdentityServerURL  string
	withNowFunc            func() time.Time
	withLogger             hclog.Logger
}

// authorizeDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func authorizeDefaults() authorizeOptions {
	return authorizeOptions{
		withFlowExpiry: DefaultFlowExpiry,
		withNowFunc:    time.Now,
		withLogger:     hclog.NewNullLogger(),
	}
}

// getAuthorizeOpts gets the defaults and applies the opt overrides passed in
func getAuthorizeOpts(opt ...Option) authorizeOptions {
	opts := authorizeDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withNowFunc == nil {
		opts.withNowFunc = time.Now
	}
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}
