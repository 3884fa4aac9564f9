// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package matrix

// LoginTypeToken is the login type used to finish a legacy SSO login.
const LoginTypeToken = "m.login.token"

// LoginRequest is the body of POST /_matrix/client/v3/login.
type LoginRequest struct {
	Type                     string `json:"type"`
	Token                    string `json:"token,omitempty"`
	DeviceID                 string `json:"device_id,omitempty"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
	RefreshToken             bool   `json:"refresh_token,omitempty"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	UserID       string              `json:"user_id"`
	AccessToken  string              `json:"access_token"`
	DeviceID     string              `json:"device_id"`
	RefreshToken string              `json:"refresh_token,omitempty"`
	ExpiresInMs  int64               `json:"expires_in_ms,omitempty"`
	WellKnown    *ClientWellKnownDoc `json:"well_known,omitempty"`
}

// WhoAmIResponse is returned by GET /_matrix/client/v3/account/whoami.
type WhoAmIResponse struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id,omitempty"`
	IsGuest  bool   `json:"is_guest,omitempty"`
}

// AuthIssuerResponse is returned by the unstable MSC2965 auth_issuer endpoint.
type AuthIssuerResponse struct {
	Issuer string `json:"issuer"`
}

// VersionsResponse is returned by GET /_matrix/client/versions.
type VersionsResponse struct {
	Versions         []string        `json:"versions"`
	UnstableFeatures map[string]bool `json:"unstable_features,omitempty"`
}

// ClientWellKnownDoc is the /.well-known/matrix/client document.
type ClientWellKnownDoc struct {
	Homeserver     *BaseURLDoc `json:"m.homeserver,omitempty"`
	IdentityServer *BaseURLDoc `json:"m.identity_server,omitempty"`
}

// BaseURLDoc is one entry of the well-known document.
type BaseURLDoc struct {
	BaseURL string `json:"base_url"`
}
