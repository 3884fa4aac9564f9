// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import "os"

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

// WithLookupEnv provides an optional func used instead of os.LookupEnv by
// Load.
func WithLookupEnv(fn func(key string) (string, bool)) Option {
	return func(o interface{}) {
		if v, ok := o.(*loadOptions); ok {
			v.withLookupEnv = fn
		}
	}
}

// loadOptions is the set of available options for Load
type loadOptions struct {
	withLookupEnv func(string) (string, bool)
}

func loadDefaults() loadOptions {
	return loadOptions{withLookupEnv: os.LookupEnv}
}

func getLoadOpts(opt ...Option) loadOptions {
	opts := loadDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLookupEnv == nil {
		opts.withLookupEnv = os.LookupEnv
	}
	return opts
}
