// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Storage keys of the persisted credentials.
const (
	MatrixClientCredentialsKey = "neoboard_matrix_client_credentials"
	OidcCredentialsKey         = "neoboard_oidc_credentials"
	MatrixCredentialsKey       = "neoboard_matrix_credentials"
)

// Validator is implemented by every value that can be loaded with
// LoadValidated.
type Validator interface {
	// Validate returns nil or a *multierror.Error with one entry per
	// problem found.
	Validate() error
}

var userIDPattern = regexp.MustCompile(`^@[^:\s]+:\S+$`)

// MatrixClientCredentials is what a Matrix client needs to talk to the
// homeserver on behalf of the user.
type MatrixClientCredentials struct {
	HomeserverURL     string `json:"homeserverUrl"`
	IdentityServerURL string `json:"identityServerUrl,omitempty"`
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken,omitempty"`
}

// String redacts the tokens.
func (c MatrixClientCredentials) String() string {
	return fmt.Sprintf("{homeserverUrl: %s, identityServerUrl: %s, accessToken: [REDACTED], refreshToken: [REDACTED]}", c.HomeserverURL, c.IdentityServerURL)
}

// Validate implements Validator.
func (c *MatrixClientCredentials) Validate() error {
	var result *multierror.Error
	if !isURI(c.HomeserverURL) {
		result = multierror.Append(result, fmt.Errorf("homeserverUrl %q is not a URI", c.HomeserverURL))
	}
	if c.IdentityServerURL != "" && !isURI(c.IdentityServerURL) {
		result = multierror.Append(result, fmt.Errorf("identityServerUrl %q is not a URI", c.IdentityServerURL))
	}
	if c.AccessToken == "" {
		result = multierror.Append(result, errors.New("accessToken is required"))
	}
	return result.ErrorOrNil()
}

// Audience is the aud claim of an id_token. It decodes from either a single
// string or a list of strings and encodes a single entry as a string.
type Audience []string

// MarshalJSON implements json.Marshaler.
func (a Audience) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Audience) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*a = Audience{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("aud must be a string or a list of strings: %w", err)
	}
	*a = list
	return nil
}

// Contains reports whether aud is one of the audiences.
func (a Audience) Contains(aud string) bool {
	for _, v := range a {
		if v == aud {
			return true
		}
	}
	return false
}

// IdTokenClaims are the id_token claims kept after an OIDC login.
type IdTokenClaims struct {
	Subject   string   `json:"sub"`
	Issuer    string   `json:"iss"`
	Audience  Audience `json:"aud"`
	Expiry    int64    `json:"exp"`
	IssuedAt  int64    `json:"iat"`
	CodeHash  string   `json:"c_hash,omitempty"`
	Nonce     string   `json:"nonce,omitempty"`
	AuthTime  int64    `json:"auth_time,omitempty"`
	SessionID string   `json:"sid,omitempty"`
}

// Validate implements Validator.
func (c *IdTokenClaims) Validate() error {
	var result *multierror.Error
	if !isURI(c.Issuer) {
		result = multierror.Append(result, fmt.Errorf("idTokenClaims.iss %q is not a URI", c.Issuer))
	}
	if c.Subject == "" {
		result = multierror.Append(result, errors.New("idTokenClaims.sub is required"))
	}
	if len(c.Audience) == 0 {
		result = multierror.Append(result, errors.New("idTokenClaims.aud is required"))
	}
	for _, aud := range c.Audience {
		if aud == "" {
			result = multierror.Append(result, errors.New("idTokenClaims.aud contains an empty audience"))
			break
		}
	}
	if c.Expiry <= 0 {
		result = multierror.Append(result, errors.New("idTokenClaims.exp must be a positive number"))
	}
	if c.IssuedAt <= 0 {
		result = multierror.Append(result, errors.New("idTokenClaims.iat must be a positive number"))
	}
	return result.ErrorOrNil()
}

// OidcCredentials identify the OAuth client and the user's OIDC identity.
type OidcCredentials struct {
	ClientID      string        `json:"clientId"`
	Issuer        string        `json:"issuer"`
	IdTokenClaims IdTokenClaims `json:"idTokenClaims"`
}

// Validate implements Validator.
func (c *OidcCredentials) Validate() error {
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, errors.New("clientId is required"))
	}
	if !isURI(c.Issuer) {
		result = multierror.Append(result, fmt.Errorf("issuer %q is not a URI", c.Issuer))
	}
	if err := c.IdTokenClaims.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// MatrixCredentials identify the logged in Matrix user and device.
type MatrixCredentials struct {
	UserID   string `json:"userId"`
	DeviceID string `json:"deviceId"`
}

// Validate implements Validator.
func (c *MatrixCredentials) Validate() error {
	var result *multierror.Error
	if !userIDPattern.MatchString(c.UserID) {
		result = multierror.Append(result, fmt.Errorf("userId %q is not a Matrix user id", c.UserID))
	}
	if strings.TrimSpace(c.DeviceID) == "" {
		result = multierror.Append(result, errors.New("deviceId is required"))
	}
	return result.ErrorOrNil()
}

// isURI reports whether s is an absolute URI.
func isURI(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}
