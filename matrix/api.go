// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	pathVersions     = "/_matrix/client/versions"
	pathLogin        = "/_matrix/client/v3/login"
	pathLogout       = "/_matrix/client/v3/logout"
	pathWhoAmI       = "/_matrix/client/v3/account/whoami"
	pathAuthIssuer   = "/_matrix/client/unstable/org.matrix.msc2965/auth_issuer"
	pathAuthMetadata = "/_matrix/client/v1/auth_metadata"
	pathSSORedirect  = "/_matrix/client/v3/login/sso/redirect"
)

// SSORedirectURL returns the URL that starts a legacy SSO login at the
// homeserver. After login the homeserver sends the user agent to redirectURL
// with a loginToken query parameter.
func SSORedirectURL(homeserverURL, redirectURL string) (string, error) {
	const op = "matrix.SSORedirectURL"
	if !IsAbsoluteURL(homeserverURL) {
		return "", fmt.Errorf("%s: homeserver URL %q is not an absolute http(s) URL: %w", op, homeserverURL, ErrInvalidParameter)
	}
	if !IsAbsoluteURL(redirectURL) {
		return "", fmt.Errorf("%s: redirect URL %q is not an absolute http(s) URL: %w", op, redirectURL, ErrInvalidParameter)
	}
	q := url.Values{"redirectUrl": []string{redirectURL}}
	return strings.TrimRight(homeserverURL, "/") + pathSSORedirect + "?" + q.Encode(), nil
}

// Versions returns the client-server API versions the homeserver supports. It is
// unauthenticated and is used to check that a URL really is a homeserver.
func (c *Client) Versions(ctx context.Context) (*VersionsResponse, error) {
	const op = "matrix.(Client).Versions"
	var resp VersionsResponse
	if err := c.doRequest(ctx, http.MethodGet, pathVersions, false, nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Versions) == 0 {
		return nil, fmt.Errorf("%s: no versions advertised: %w", op, ErrMalformedResponse)
	}
	return &resp, nil
}

// AuthIssuer returns the delegated auth issuer advertised by the homeserver
// via the unstable MSC2965 endpoint.
func (c *Client) AuthIssuer(ctx context.Context) (string, error) {
	const op = "matrix.(Client).AuthIssuer"
	var resp AuthIssuerResponse
	if err := c.doRequest(ctx, http.MethodGet, pathAuthIssuer, false, nil, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.Issuer == "" {
		return "", fmt.Errorf("%s: issuer is missing: %w", op, ErrMalformedResponse)
	}
	return resp.Issuer, nil
}

// AuthMetadata returns the raw OAuth 2.0 server metadata document served by
// the homeserver. Decoding and validation is left to the caller.
func (c *Client) AuthMetadata(ctx context.Context) (json.RawMessage, error) {
	const op = "matrix.(Client).AuthMetadata"
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, pathAuthMetadata, false, nil, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return raw, nil
}

// LoginWithToken completes a legacy SSO login by exchanging the loginToken
// from the SSO redirect for an access token.
func (c *Client) LoginWithToken(ctx context.Context, loginToken string) (*LoginResponse, error) {
	const op = "matrix.(Client).LoginWithToken"
	if loginToken == "" {
		return nil, fmt.Errorf("%s: login token is empty: %w", op, ErrInvalidParameter)
	}
	req := LoginRequest{
		Type:                     LoginTypeToken,
		Token:                    loginToken,
		InitialDeviceDisplayName: c.deviceDisplayName,
		RefreshToken:             true,
	}
	var resp LoginResponse
	if err := c.doRequest(ctx, http.MethodPost, pathLogin, false, req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case resp.AccessToken == "":
		return nil, fmt.Errorf("%s: access_token is missing: %w", op, ErrMalformedResponse)
	case resp.UserID == "":
		return nil, fmt.Errorf("%s: user_id is missing: %w", op, ErrMalformedResponse)
	}
	c.logger.Info("logged in with token", "user_id", resp.UserID, "device_id", resp.DeviceID)
	return &resp, nil
}

// WhoAmI returns the user and device the client's access token belongs to.
func (c *Client) WhoAmI(ctx context.Context) (*WhoAmIResponse, error) {
	const op = "matrix.(Client).WhoAmI"
	var resp WhoAmIResponse
	if err := c.doRequest(ctx, http.MethodGet, pathWhoAmI, true, nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.UserID == "" {
		return nil, fmt.Errorf("%s: user_id is missing: %w", op, ErrMalformedResponse)
	}
	return &resp, nil
}

// Logout invalidates the client's access token on the homeserver.
func (c *Client) Logout(ctx context.Context) error {
	const op = "matrix.(Client).Logout"
	if err := c.doRequest(ctx, http.MethodPost, pathLogout, true, struct{}{}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
