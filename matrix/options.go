// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"net/http"

	"github.com/hashicorp/go-hclog"
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

// WithHTTPClient provides an optional http client for: NewClient,
// DiscoverClientConfig and ResolveHomeserverURL.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *clientOptions:
			v.withHTTPClient = c
		case *discoveryOptions:
			v.withHTTPClient = c
		}
	}
}

// WithLogger provides an optional logger for: NewClient,
// DiscoverClientConfig and ResolveHomeserverURL.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *clientOptions:
			v.withLogger = l
		case *discoveryOptions:
			v.withLogger = l
		}
	}
}

// WithAccessToken provides an optional access token for NewClient. Requests
// that need authentication fail without one.
func WithAccessToken(token string) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientOptions); ok {
			v.withAccessToken = token
		}
	}
}

// WithDeviceDisplayName sets the initial_device_display_name sent by
// LoginWithToken.
func WithDeviceDisplayName(name string) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientOptions); ok {
			v.withDeviceDisplayName = name
		}
	}
}
