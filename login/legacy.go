// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/matrix"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/oidc"
)

// CompleteLegacySsoLogin exchanges the loginToken a homeserver's legacy SSO
// redirect returned for an access token.
//
// It never returns an error: any failure is logged as a warning and ok is
// false. The transient Matrix client is closed before it returns.
//
// Supported options:
//   - WithHTTPClient
//   - WithLogger
//   - WithClock
//   - WithDeviceDisplayName
func CompleteLegacySsoLogin(ctx context.Context, homeserverURL, loginToken string, opt ...Option) (result *oidc.LoginResult, ok bool) {
	opts := getLegacyOpts(opt...)
	logger := opts.withLogger

	mc, err := matrix.NewClient(homeserverURL,
		matrix.WithHTTPClient(opts.withHTTPClient),
		matrix.WithLogger(logger),
		matrix.WithDeviceDisplayName(opts.withDeviceDisplayName),
	)
	if err != nil {
		logger.Warn("legacy SSO login failed", "homeserver", homeserverURL, "error", err)
		return nil, false
	}
	defer mc.Close()

	resp, err := mc.LoginWithToken(ctx, loginToken)
	if err != nil {
		logger.Warn("legacy SSO login failed", "homeserver", homeserverURL, "error", err)
		return nil, false
	}

	result = &oidc.LoginResult{
		AccessToken:   oidc.AccessToken(resp.AccessToken),
		RefreshToken:  oidc.RefreshToken(resp.RefreshToken),
		HomeserverURL: mc.HomeserverURL(),
		DeviceID:      resp.DeviceID,
	}
	if resp.ExpiresInMs > 0 {
		result.Expiry = opts.withClock.Now().Add(time.Duration(resp.ExpiresInMs) * time.Millisecond)
	}
	if wk := resp.WellKnown; wk != nil && wk.IdentityServer != nil && matrix.IsAbsoluteURL(wk.IdentityServer.BaseURL) {
		result.IdentityServerURL = strings.TrimRight(wk.IdentityServer.BaseURL, "/")
	}
	return result, true
}

// legacyOptions is the set of available options for CompleteLegacySsoLogin
type legacyOptions struct {
	withHTTPClient        *http.Client
	withLogger            hclog.Logger
	withClock             clockwork.Clock
	withDeviceDisplayName string
}

// legacyDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func legacyDefaults() legacyOptions {
	return legacyOptions{
		withLogger: hclog.NewNullLogger(),
		withClock:  clockwork.NewRealClock(),
	}
}

// getLegacyOpts gets the defaults and applies the opt overrides passed in
func getLegacyOpts(opt ...Option) legacyOptions {
	opts := legacyDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	if opts.withClock == nil {
		opts.withClock = clockwork.NewRealClock()
	}
	return opts
}
