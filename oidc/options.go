// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
	"golang.org/x/text/language"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithHTTPClient provides an optional http client for: FetchAuthMetadata,
// RegisterClient and CompleteAuthorization.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *fetchOptions:
			v.withHTTPClient = c
		case *registerOptions:
			v.withHTTPClient = c
		case *completeOptions:
			v.withHTTPClient = c
		}
	}
}

// WithLogger provides an optional logger for: FetchAuthMetadata,
// RegisterClient, StartAuthorization and CompleteAuthorization.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *fetchOptions:
			v.withLogger = l
		case *registerOptions:
			v.withLogger = l
		case *authorizeOptions:
			v.withLogger = l
		case *completeOptions:
			v.withLogger = l
		}
	}
}

// WithStorage provides the session storage that holds the in-flight
// authorization flow for: StartAuthorization and CompleteAuthorization.
func WithStorage(s credentials.Storage) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *authorizeOptions:
			v.withStorage = s
		case *completeOptions:
			v.withStorage = s
		}
	}
}

// WithNow provides an optional func for determining what the current time it
// is, for: StartAuthorization and CompleteAuthorization.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *authorizeOptions:
			v.withNowFunc = now
		case *completeOptions:
			v.withNowFunc = now
		}
	}
}

// WithExpirySkew provides an optional expiry skew duration for
// CompleteAuthorization. A flow is treated as expired when it expires within
// the skew.
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*completeOptions); ok {
			v.withExpirySkew = d
		}
	}
}

// WithNavigator provides the Navigator that StartAuthorization sends the
// user agent to the authorization endpoint with.
func WithNavigator(n Navigator) Option {
	return func(o interface{}) {
		if v, ok := o.(*authorizeOptions); ok {
			v.withNavigator = n
		}
	}
}

// WithRedirectURL provides the URL of the application page for
// StartAuthorization. Its origin and path become the redirect_uri.
func WithRedirectURL(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*authorizeOptions); ok {
			v.withRedirectURL = u
		}
	}
}

// WithRegistrationIntent asks the authorization server to show its account
// registration page (prompt=create) for StartAuthorization.
func WithRegistrationIntent() Option {
	return func(o interface{}) {
		if v, ok := o.(*authorizeOptions); ok {
			v.withRegistrationIntent = true
		}
	}
}

// WithUILocales provides optional preferred languages for the authorization
// server's pages (ui_locales) for StartAuthorization.
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if v, ok := o.(*authorizeOptions); ok {
			v.withUILocales = locales
		}
	}
}

// WithFlowExpiry provides how long an authorization flow started by
// StartAuthorization may take to complete.
func WithFlowExpiry(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*authorizeOptions); ok {
			v.withFlowExpiry = d
		}
	}
}

// WithIdentityServerURL provides the identity server discovered for the
// homeserver, which StartAuthorization keeps for the LoginResult.
func WithIdentityServerURL(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*authorizeOptions); ok {
			v.withIdentityServerURL = u
		}
	}
}

// WithClientName provides an optional client_name for NewClientMetadata.
func WithClientName(name string) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientMetadataOptions); ok {
			v.withClientName = name
		}
	}
}

// WithContacts provides optional contacts for NewClientMetadata.
func WithContacts(contacts ...string) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientMetadataOptions); ok {
			v.withContacts = contacts
		}
	}
}

// WithTOSURI provides an optional tos_uri for NewClientMetadata.
func WithTOSURI(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientMetadataOptions); ok {
			v.withTOSURI = u
		}
	}
}

// WithPolicyURI provides an optional policy_uri for NewClientMetadata.
func WithPolicyURI(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientMetadataOptions); ok {
			v.withPolicyURI = u
		}
	}
}

// WithLogoURI provides an optional logo_uri for NewClientMetadata.
func WithLogoURI(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientMetadataOptions); ok {
			v.withLogoURI = u
		}
	}
}
