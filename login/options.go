// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"
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

// WithLogger provides an optional logger for: NewService and
// CompleteLegacySsoLogin.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *serviceOptions:
			v.withLogger = l
		case *legacyOptions:
			v.withLogger = l
		}
	}
}

// WithHTTPClient provides an optional http client for: NewService and
// CompleteLegacySsoLogin. NewService otherwise uses Config.HttpClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *serviceOptions:
			v.withHTTPClient = c
		case *legacyOptions:
			v.withHTTPClient = c
		}
	}
}

// WithClock provides an optional clock for: NewService and
// CompleteLegacySsoLogin.
func WithClock(c clockwork.Clock) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *serviceOptions:
			v.withClock = c
		case *legacyOptions:
			v.withClock = c
		}
	}
}

// WithDeviceDisplayName provides the initial device display name for: NewConfig
// and CompleteLegacySsoLogin.
func WithDeviceDisplayName(name string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withDeviceDisplayName = name
		case *legacyOptions:
			v.withDeviceDisplayName = name
		}
	}
}

// WithClientName provides an optional client name for NewConfig.
func WithClientName(name string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withClientName = name
		}
	}
}

// WithContacts provides optional registration contacts for NewConfig.
func WithContacts(contacts ...string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withContacts = contacts
		}
	}
}

// WithTOSURI provides an optional terms of service URI for NewConfig.
func WithTOSURI(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withTOSURI = u
		}
	}
}

// WithPolicyURI provides an optional privacy policy URI for NewConfig.
func WithPolicyURI(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withPolicyURI = u
		}
	}
}

// WithLogoURI provides an optional logo URI for NewConfig.
func WithLogoURI(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withLogoURI = u
		}
	}
}

// WithUILocales provides optional preferred languages for the
// authorization server's pages for NewConfig.
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withUILocales = locales
		}
	}
}

// WithFlowExpiry provides how long an authorization flow may take for
// NewConfig.
func WithFlowExpiry(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withFlowExpiry = d
		}
	}
}

// WithProviderCA provides an optional CA cert PEM that is trusted when
// talking to the homeserver and issuer, for NewConfig.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withProviderCA = cert
		}
	}
}

// WithRegistrationIntent asks the authorization server to start with account
// registration, for StartLogin and StartOidcLoginFlow.
func WithRegistrationIntent() Option {
	return func(o interface{}) {
		if v, ok := o.(*startOptions); ok {
			v.withRegistrationIntent = true
		}
	}
}

// WithIdentityServerURL provides the identity server that is stored with the
// credentials, for StartOidcLoginFlow.
func WithIdentityServerURL(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*startOptions); ok {
			v.withIdentityServerURL = u
		}
	}
}

// startOptions is the set of available options for starting a login.
type startOptions struct {
	withRegistrationIntent bool
	withIdentityServerURL  string
}

func getStartOpts(opt ...Option) startOptions {
	var opts startOptions
	ApplyOpts(&opts, opt...)
	return opts
}
