// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"fmt"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
)

// Session is a logged in user: what a Matrix client needs to act for them and
// who they are.
type Session struct {
	Client *credentials.MatrixClientCredentials
	Matrix *credentials.MatrixCredentials

	// Oidc is nil for a legacy SSO login.
	Oidc *credentials.OidcCredentials
}

// IsOidc reports whether the session came from an OIDC login.
func (s *Session) IsOidc() bool {
	return s != nil && s.Oidc != nil
}

// String redacts the tokens.
func (s *Session) String() string {
	if s == nil || s.Client == nil || s.Matrix == nil {
		return "<no session>"
	}
	if s.IsOidc() {
		return fmt.Sprintf("user=%s device=%s homeserver=%s issuer=%s", s.Matrix.UserID, s.Matrix.DeviceID, s.Client.HomeserverURL, s.Oidc.Issuer)
	}
	return fmt.Sprintf("user=%s device=%s homeserver=%s", s.Matrix.UserID, s.Matrix.DeviceID, s.Client.HomeserverURL)
}
