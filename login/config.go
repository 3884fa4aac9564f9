// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-secure-stdlib/strutil"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/oidc"
	sdkHttp "github.com/nordeck/matrix-neoboard-standalone-sub001/sdk/http"
	"golang.org/x/text/language"
)

// Config represents the configuration of a NeoBoard client's logins.
type Config struct {
	// AppURL is the URL of the application page. Its origin and path are
	// registered as the client URI and are the only redirect URI.
	AppURL string

	// Storage is durable and keeps the credentials of a login across
	// restarts.
	Storage credentials.Storage

	// SessionStorage keeps the in-flight authorization flow. It only has to
	// live until the user agent comes back to AppURL.
	SessionStorage credentials.Storage

	// Navigator sends the user agent to the authorization endpoint.
	Navigator oidc.Navigator

	// ClientName, Contacts, TOSURI, PolicyURI and LogoURI are sent during
	// dynamic client registration.
	ClientName string
	Contacts   []string
	TOSURI     string
	PolicyURI  string
	LogoURI    string

	// UILocales are the preferred languages for the authorization server's
	// pages.
	UILocales []language.Tag

	// DeviceDisplayName is used for the device created by a legacy SSO login.
	DeviceDisplayName string

	// FlowExpiry is how long an authorization flow may take to complete.
	FlowExpiry time.Duration

	// ProviderCA is an optional CA cert to use when sending requests to the
	// homeserver and its issuer.
	ProviderCA string
}

// NewConfig composes a new config for logins of the application served at
// appURL.
// Supported options:
//   - WithClientName
//   - WithContacts
//   - WithTOSURI
//   - WithPolicyURI
//   - WithLogoURI
//   - WithUILocales
//   - WithDeviceDisplayName
//   - WithFlowExpiry
//   - WithProviderCA
func NewConfig(appURL string, storage, sessionStorage credentials.Storage, nav oidc.Navigator, opt ...Option) (*Config, error) {
	const op = "login.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		AppURL:            appURL,
		Storage:           storage,
		SessionStorage:    sessionStorage,
		Navigator:         nav,
		ClientName:        opts.withClientName,
		Contacts:          strutil.RemoveDuplicates(opts.withContacts, true),
		TOSURI:            opts.withTOSURI,
		PolicyURI:         opts.withPolicyURI,
		LogoURI:           opts.withLogoURI,
		UILocales:         opts.withUILocales,
		DeviceDisplayName: opts.withDeviceDisplayName,
		FlowExpiry:        opts.withFlowExpiry,
		ProviderCA:        opts.withProviderCA,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	return c, nil
}

// Validate the configuration. It does not check that any of the URLs can be
// reached.
func (c *Config) Validate() error {
	const op = "login.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	switch {
	case c.Storage == nil:
		return fmt.Errorf("%s: storage is nil: %w", op, ErrNilParameter)
	case c.SessionStorage == nil:
		return fmt.Errorf("%s: session storage is nil: %w", op, ErrNilParameter)
	case c.Navigator == nil:
		return fmt.Errorf("%s: navigator is nil: %w", op, ErrNilParameter)
	case !isHTTPURL(c.AppURL):
		return fmt.Errorf("%s: app URL %q is not an absolute http(s) URL: %w", op, c.AppURL, ErrInvalidParameter)
	case strings.TrimSpace(c.ClientName) == "":
		return fmt.Errorf("%s: client name is empty: %w", op, ErrInvalidParameter)
	case c.FlowExpiry <= 0:
		return fmt.Errorf("%s: flow expiry must be greater than zero: %w", op, ErrInvalidParameter)
	}
	for name, u := range map[string]string{"tos": c.TOSURI, "policy": c.PolicyURI, "logo": c.LogoURI} {
		if u != "" && !isHTTPURL(u) {
			return fmt.Errorf("%s: %s URI %q is not an absolute http(s) URL: %w", op, name, u, ErrInvalidParameter)
		}
	}
	for _, contact := range c.Contacts {
		if strings.TrimSpace(contact) == "" {
			return fmt.Errorf("%s: contacts contain an empty entry: %w", op, ErrInvalidParameter)
		}
	}
	return nil
}

// HttpClient is a helper function that creates a new http client which
// trusts ProviderCA when it is set.
func (c *Config) HttpClient() (*http.Client, error) {
	const op = "login.(Config).HttpClient"
	client, err := sdkHttp.NewClient(c.ProviderCA)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// ClientMetadata returns the metadata registered for every login.
func (c *Config) ClientMetadata() (*oidc.ClientMetadata, error) {
	const op = "login.(Config).ClientMetadata"
	cm, err := oidc.NewClientMetadata(c.AppURL,
		oidc.WithClientName(c.ClientName),
		oidc.WithContacts(c.Contacts...),
		oidc.WithTOSURI(c.TOSURI),
		oidc.WithPolicyURI(c.PolicyURI),
		oidc.WithLogoURI(c.LogoURI),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cm, nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// configOptions is the set of available options for NewConfig
type configOptions struct {
	withClientName        string
	withContacts          []string
	withTOSURI            string
	withPolicyURI         string
	withLogoURI           string
	withUILocales         []language.Tag
	withDeviceDisplayName string
	withFlowExpiry        time.Duration
	withProviderCA        string
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{
		withClientName:        oidc.DefaultClientName,
		withContacts:          []string{oidc.DefaultContact},
		withTOSURI:            oidc.DefaultTOSURI,
		withPolicyURI:         oidc.DefaultPolicyURI,
		withDeviceDisplayName: oidc.DefaultClientName,
		withFlowExpiry:        oidc.DefaultFlowExpiry,
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed in
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
