// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
	"golang.org/x/oauth2"
)

// CompleteAuthorization finishes the flow started by StartAuthorization with
// the code and state returned to the redirect URI.
//
// The stored flow is removed before anything else, so a flow can be
// completed at most once. The returned state must equal the stored one and
// the flow must not be expired. The homeserver's auth metadata is fetched
// again, the code is exchanged with the PKCE verifier, and the id_token is
// verified (signature, issuer, audience, expiry and nonce).
//
// Every error matches ErrCompletionFailed plus one of ErrFlowNotFound,
// ErrResponseStateInvalid, ErrExpiredFlow, ErrMetadataFetchFailed,
// ErrTokenExchangeFailed, ErrMissingIdToken, ErrIdTokenVerificationFailed or
// ErrInvalidNonce.
//
// Supported options:
//   - WithStorage (required)
//   - WithHTTPClient
//   - WithExpirySkew
//   - WithNow
//   - WithLogger
func CompleteAuthorization(ctx context.Context, code, state string, opt ...Option) (*LoginResult, error) {
	const op = "oidc.CompleteAuthorization"
	opts := getCompleteOpts(opt...)
	if opts.withStorage == nil {
		return nil, fmt.Errorf("%s: missing storage: %w: %w", op, ErrCompletionFailed, ErrNilParameter)
	}

	flow, err := takeFlow(ctx, opts.withStorage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrCompletionFailed, err)
	}
	if state == "" || state != flow.State {
		return nil, fmt.Errorf("%s: state does not match the stored flow: %w: %w", op, ErrCompletionFailed, ErrResponseStateInvalid)
	}
	if flow.IsExpired(opts.withNowFunc(), opts.withExpirySkew) {
		return nil, fmt.Errorf("%s: flow expired at %s: %w: %w", op, flow.ExpiresAt.Format(time.RFC3339), ErrCompletionFailed, ErrExpiredFlow)
	}
	if code == "" {
		return nil, fmt.Errorf("%s: missing code: %w: %w", op, ErrCompletionFailed, ErrInvalidParameter)
	}

	client, err := httpClient(opts.withHTTPClient)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w: %w", op, ErrCompletionFailed, err)
	}
	md, err := FetchAuthMetadata(ctx, flow.HomeserverURL, WithHTTPClient(client), WithLogger(opts.withLogger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrCompletionFailed, err)
	}
	if md.Issuer != flow.Issuer {
		return nil, fmt.Errorf("%s: issuer changed from %q to %q: %w: %w", op, flow.Issuer, md.Issuer, ErrCompletionFailed, ErrInvalidMetadata)
	}

	oauthCtx := clientContext(ctx, client)
	endpoint := md.Provider(oauthCtx).Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	cfg := oauth2.Config{
		ClientID:    flow.ClientID,
		RedirectURL: flow.RedirectURI,
		Endpoint:    endpoint,
	}
	token, err := cfg.Exchange(oauthCtx, code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			opts.withLogger.Warn("token endpoint rejected the code", "issuer", md.Issuer, "error_code", rErr.ErrorCode, "status", rErr.Response.StatusCode)
		}
		return nil, fmt.Errorf("%s: %w: %w: %w", op, ErrCompletionFailed, ErrTokenExchangeFailed, err)
	}

	rawIdToken, ok := token.Extra("id_token").(string)
	if !ok || rawIdToken == "" {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrCompletionFailed, ErrMissingIdToken)
	}
	idToken, err := md.Verifier(flow.ClientID, opts.withNowFunc).Verify(oauthCtx, rawIdToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w: %w", op, ErrCompletionFailed, ErrIdTokenVerificationFailed, err)
	}
	if idToken.Nonce != flow.Nonce {
		return nil, fmt.Errorf("%s: id_token nonce does not match: %w: %w", op, ErrCompletionFailed, ErrInvalidNonce)
	}
	var claims credentials.IdTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: unable to decode id_token claims: %w: %w: %w", op, ErrCompletionFailed, ErrIdTokenVerificationFailed, err)
	}

	opts.withLogger.Info("completed authorization", "issuer", md.Issuer, "client_id", flow.ClientID, "sub", claims.Subject)
	return &LoginResult{
		AccessToken:       AccessToken(token.AccessToken),
		RefreshToken:      RefreshToken(token.RefreshToken),
		Expiry:            token.Expiry,
		HomeserverURL:     flow.HomeserverURL,
		IdentityServerURL: flow.IdentityServerURL,
		DeviceID:          flow.DeviceID,
		Issuer:            md.Issuer,
		ClientID:          flow.ClientID,
		IdToken:           IdToken(rawIdToken),
		IdTokenClaims:     &claims,
	}, nil
}

// CompleteAuthorizationRequest completes the flow from the request the
// authorization server redirected the user agent to. An error response
// (error and error_description) matches ErrAuthorizationDenied and discards
// the stored flow.
//
// It supports the same options as CompleteAuthorization.
func CompleteAuthorizationRequest(ctx context.Context, req *http.Request, opt ...Option) (*LoginResult, error) {
	const op = "oidc.CompleteAuthorizationRequest"
	if req == nil {
		return nil, fmt.Errorf("%s: missing request: %w: %w", op, ErrCompletionFailed, ErrNilParameter)
	}
	q := req.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		opts := getCompleteOpts(opt...)
		if opts.withStorage != nil {
			if _, err := takeFlow(ctx, opts.withStorage); err != nil && !errors.Is(err, ErrFlowNotFound) {
				opts.withLogger.Warn("unable to discard flow state", "error", err)
			}
		}
		return nil, fmt.Errorf("%s: %s: %s: %w: %w", op, errCode, q.Get("error_description"), ErrCompletionFailed, ErrAuthorizationDenied)
	}
	result, err := CompleteAuthorization(ctx, q.Get("code"), q.Get("state"), opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// completeOptions is the set of available options for CompleteAuthorization
type completeOptions struct {
	withStorage    credentials.Storage
	withHTTPClient *http.Client
	withExpirySkew time.Duration
	withNowFunc    func() time.Time
	withLogger     hclog.Logger
}

// completeDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func completeDefaults() completeOptions {
	return completeOptions{
		withExpirySkew: DefaultFlowExpirySkew,
		withNowFunc:    time.Now,
		withLogger:     hclog.NewNullLogger(),
	}
}

// getCompleteOpts gets the defaults and applies the opt overrides passed in
func getCompleteOpts(opt ...Option) completeOptions {
	opts := completeDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withNowFunc == nil {
		opts.withNowFunc = time.Now
	}
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}
