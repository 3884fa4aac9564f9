// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
)

// AccessToken is an oauth access_token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token
func (t AccessToken) String() string { return RedactedAccessToken }

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) { return json.Marshal(RedactedAccessToken) }

// RefreshToken is an oauth refresh_token
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth refresh_token
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token
func (t RefreshToken) String() string { return RedactedRefreshToken }

// MarshalJSON will redact the token
func (t RefreshToken) MarshalJSON() ([]byte, error) { return json.Marshal(RedactedRefreshToken) }

// IdToken is an oidc id_token
type IdToken string

// RedactedIdToken is the redacted string or json for an oidc id_token
const RedactedIdToken = "[REDACTED: id_token]"

// String will redact the token
func (t IdToken) String() string { return RedactedIdToken }

// MarshalJSON will redact the token
func (t IdToken) MarshalJSON() ([]byte, error) { return json.Marshal(RedactedIdToken) }

// LoginResult is what a completed login produced.
type LoginResult struct {
	AccessToken  AccessToken
	RefreshToken RefreshToken

	// Expiry is zero when the access token does not expire.
	Expiry time.Time

	HomeserverURL     string
	IdentityServerURL string

	// DeviceID is the device requested during authorization, or the one
	// assigned by the homeserver for a legacy SSO login.
	DeviceID string

	// Issuer, ClientID, IdToken and IdTokenClaims are only set for an OIDC
	// login.
	Issuer        string
	ClientID      string
	IdToken       IdToken
	IdTokenClaims *credentials.IdTokenClaims
}

// IsOidc reports whether the result came from an OIDC login.
func (r *LoginResult) IsOidc() bool {
	return r != nil && r.IdTokenClaims != nil
}

// ClientCredentials returns the credentials a Matrix client needs to act on
// behalf of the user.
func (r *LoginResult) ClientCredentials() *credentials.MatrixClientCredentials {
	if r == nil {
		return nil
	}
	return &credentials.MatrixClientCredentials{
		HomeserverURL:     r.HomeserverURL,
		IdentityServerURL: r.IdentityServerURL,
		AccessToken:       string(r.AccessToken),
		RefreshToken:      string(r.RefreshToken),
	}
}

// OidcCredentials returns the OIDC identity of the login, or nil for a
// legacy SSO login.
func (r *LoginResult) OidcCredentials() *credentials.OidcCredentials {
	if !r.IsOidc() {
		return nil
	}
	return &credentials.OidcCredentials{
		ClientID:      r.ClientID,
		Issuer:        r.Issuer,
		IdTokenClaims: *r.IdTokenClaims,
	}
}

// String redacts the tokens.
func (r *LoginResult) String() string {
	if r == nil {
		return "<nil>"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "homeserver=%s device=%s access_token=%s", r.HomeserverURL, r.DeviceID, r.AccessToken)
	if r.IsOidc() {
		fmt.Fprintf(&sb, " issuer=%s client_id=%s sub=%s", r.Issuer, r.ClientID, r.IdTokenClaims.Subject)
	}
	return sb.String()
}
