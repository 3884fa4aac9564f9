// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
)

// FlowStateKey is the session storage key of the in-flight authorization
// flow. There is one flow per session.
const FlowStateKey = "neoboard_oidc_flow"

// DefaultFlowExpiry is how long an authorization flow may take by default.
const DefaultFlowExpiry = 10 * time.Minute

// DefaultFlowExpirySkew defines a default time skew when checking a flow's
// expiration.
const DefaultFlowExpirySkew = 1 * time.Second

// FlowState is everything needed to complete an authorization flow after the
// round trip through the authorization server. It is written once before
// navigating away and removed as soon as it is read.
type FlowState struct {
	// State is the opaque OAuth state value. It is compared with the state
	// returned to the redirect URI before anything else is trusted.
	State string `json:"state"`

	// Nonce must come back in the id_token.
	Nonce string `json:"nonce"`

	CodeVerifier      string    `json:"code_verifier"`
	RedirectURI       string    `json:"redirect_uri"`
	HomeserverURL     string    `json:"homeserver_url"`
	IdentityServerURL string    `json:"identity_server_url,omitempty"`
	Issuer            string    `json:"issuer"`
	ClientID          string    `json:"client_id"`
	DeviceID          string    `json:"device_id"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

var _ credentials.Validator = (*FlowState)(nil)

// Validate implements credentials.Validator.
func (s *FlowState) Validate() error {
	var result *multierror.Error
	for _, f := range []struct{ name, value string }{
		{"state", s.State},
		{"nonce", s.Nonce},
		{"code_verifier", s.CodeVerifier},
		{"redirect_uri", s.RedirectURI},
		{"homeserver_url", s.HomeserverURL},
		{"issuer", s.Issuer},
		{"client_id", s.ClientID},
		{"device_id", s.DeviceID},
	} {
		if f.value == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", f.name))
		}
	}
	if s.ExpiresAt.IsZero() {
		result = multierror.Append(result, errors.New("expires_at is required"))
	}
	return result.ErrorOrNil()
}

// IsExpired returns true if the flow expires before now plus skew.
func (s *FlowState) IsExpired(now time.Time, skew time.Duration) bool {
	return s.ExpiresAt.Before(now.Add(skew))
}

// String will redact the verifier and nonce
func (s *FlowState) String() string {
	return fmt.Sprintf("{state: %s, homeserver: %s, issuer: %s, client_id: %s, expires_at: %s}", s.State, s.HomeserverURL, s.Issuer, s.ClientID, s.ExpiresAt.Format(time.RFC3339))
}

// saveFlow replaces the stored flow with s.
func saveFlow(ctx context.Context, storage credentials.Storage, s *FlowState) error {
	const op = "oidc.saveFlow"
	if err := credentials.SaveValidated(ctx, storage, FlowStateKey, s); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// takeFlow reads and removes the stored flow. A missing or unreadable flow is
// ErrFlowNotFound.
func takeFlow(ctx context.Context, storage credentials.Storage) (*FlowState, error) {
	const op = "oidc.takeFlow"
	s, loadErr := credentials.LoadValidated[FlowState](ctx, storage, FlowStateKey)
	if err := storage.Remove(ctx, FlowStateKey); err != nil {
		return nil, fmt.Errorf("%s: unable to remove flow state: %w", op, err)
	}
	switch {
	case loadErr != nil:
		return nil, fmt.Errorf("%s: %w: %w", op, ErrFlowNotFound, loadErr)
	case s == nil:
		return nil, fmt.Errorf("%s: %w", op, ErrFlowNotFound)
	}
	return s, nil
}
