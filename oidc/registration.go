// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"
)

// Defaults for the registered client metadata.
const (
	DefaultClientName = "NeoBoard"
	DefaultContact    = "admin@example.com"
	DefaultTOSURI     = "https://example.com/tos"
	DefaultPolicyURI  = "https://example.com/policy"
)

// ApplicationTypeWeb is the application_type of a browser based client.
const ApplicationTypeWeb = "web"

// ClientMetadata is the client metadata sent for dynamic client registration
// (RFC 7591).
type ClientMetadata struct {
	ClientName              string   `json:"client_name"`
	ClientURI               string   `json:"client_uri"`
	RedirectURIs            []string `json:"redirect_uris"`
	ResponseTypes           []string `json:"response_types"`
	GrantTypes              []string `json:"grant_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	ApplicationType         string   `json:"application_type"`
	Contacts                []string `json:"contacts,omitempty"`
	LogoURI                 string   `json:"logo_uri,omitempty"`
	PolicyURI               string   `json:"policy_uri,omitempty"`
	TOSURI                  string   `json:"tos_uri,omitempty"`
}

// NewClientMetadata creates the metadata of a public web client served from
// appURL. Both client_uri and the only redirect URI are the origin and path
// of appURL.
//
// Supported options:
//   - WithClientName
//   - WithContacts
//   - WithTOSURI
//   - WithPolicyURI
//   - WithLogoURI
func NewClientMetadata(appURL string, opt ...Option) (*ClientMetadata, error) {
	const op = "oidc.NewClientMetadata"
	clientURI, err := pageURL(appURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getClientMetadataOpts(opt...)
	return &ClientMetadata{
		ClientName:              opts.withClientName,
		ClientURI:               clientURI,
		RedirectURIs:            []string{clientURI},
		ResponseTypes:           []string{"code"},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethod: "none",
		ApplicationType:         ApplicationTypeWeb,
		Contacts:                opts.withContacts,
		LogoURI:                 opts.withLogoURI,
		PolicyURI:               opts.withPolicyURI,
		TOSURI:                  opts.withTOSURI,
	}, nil
}

// registrationResponse is the part of the registration response that is used.
type registrationResponse struct {
	ClientID string `json:"client_id"`
}

// RegisterClient registers cm with the issuer described by md and returns the
// client_id. Client ids are not cached; every call registers a new client.
//
// Every error matches ErrRegistrationFailed.
//
// Supported options:
//   - WithHTTPClient
//   - WithLogger
func RegisterClient(ctx context.Context, md *AuthMetadata, cm *ClientMetadata, opt ...Option) (string, error) {
	const op = "oidc.RegisterClient"
	switch {
	case md == nil:
		return "", fmt.Errorf("%s: missing auth metadata: %w: %w", op, ErrRegistrationFailed, ErrNilParameter)
	case cm == nil:
		return "", fmt.Errorf("%s: missing client metadata: %w: %w", op, ErrRegistrationFailed, ErrNilParameter)
	case md.RegistrationEndpoint == "":
		return "", fmt.Errorf("%s: issuer %q does not support dynamic registration: %w: %w", op, md.Issuer, ErrRegistrationFailed, ErrInvalidMetadata)
	case len(cm.RedirectURIs) == 0:
		return "", fmt.Errorf("%s: missing redirect URIs: %w: %w", op, ErrRegistrationFailed, ErrInvalidParameter)
	}
	opts := getRegisterOpts(opt...)
	client, err := httpClient(opts.withHTTPClient)
	if err != nil {
		return "", fmt.Errorf("%s: unable to create http client: %w: %w", op, ErrRegistrationFailed, err)
	}

	var resp registrationResponse
	if err := doJSON(ctx, client, http.MethodPost, md.RegistrationEndpoint, cm, &resp); err != nil {
		return "", wrapRequestError(op, "registration request failed", ErrRegistrationFailed, err)
	}
	if resp.ClientID == "" {
		return "", fmt.Errorf("%s: response has no client_id: %w: %w", op, ErrRegistrationFailed, ErrMalformedJSON)
	}
	opts.withLogger.Info("registered client", "issuer", md.Issuer, "client_id", resp.ClientID, "client_uri", cm.ClientURI)
	return resp.ClientID, nil
}

// pageURL returns the origin and path of an absolute http(s) URL, dropping
// query and fragment.
func pageURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%q is not a valid URL: %w: %w", raw, ErrInvalidParameter, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute http(s) URL: %w", raw, ErrInvalidParameter)
	}
	page := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path, RawPath: u.RawPath}
	if page.Path == "" {
		page.Path = "/"
	}
	return page.String(), nil
}

// clientMetadataOptions is the set of available options for NewClientMetadata
type clientMetadataOptions struct {
	withClientName string
	withContacts   []string
	withTOSURI     string
	withPolicyURI  string
	withLogoURI    string
}

// clientMetadataDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func clientMetadataDefaults() clientMetadataOptions {
	return clientMetadataOptions{
		withClientName: DefaultClientName,
		withContacts:   []string{DefaultContact},
		withTOSURI:     DefaultTOSURI,
		withPolicyURI:  DefaultPolicyURI,
	}
}

// getClientMetadataOpts gets the defaults and applies the opt overrides passed
// in
func getClientMetadataOpts(opt ...Option) clientMetadataOptions {
	opts := clientMetadataDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// registerOptions is the set of available options for RegisterClient
type registerOptions struct {
	withHTTPClient *http.Client
	withLogger     hclog.Logger
}

// registerDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func registerDefaults() registerOptions {
	return registerOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getRegisterOpts gets the defaults and applies the opt overrides passed in
func getRegisterOpts(opt ...Option) registerOptions {
	opts := registerDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}
