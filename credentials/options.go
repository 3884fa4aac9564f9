// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import "github.com/hashicorp/go-hclog"

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

// WithLogger provides an optional logger for: TryLoadValidated and NewStore.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *loadOptions:
			v.withLogger = l
		case *storeOptions:
			v.withLogger = l
		}
	}
}

type loadOptions struct {
	withLogger hclog.Logger
}

func loadDefaults() loadOptions {
	return loadOptions{withLogger: hclog.NewNullLogger()}
}

func getLoadOpts(opt ...Option) loadOptions {
	opts := loadDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}

type storeOptions struct {
	withLogger hclog.Logger
}

func storeDefaults() storeOptions {
	return storeOptions{withLogger: hclog.NewNullLogger()}
}

func getStoreOpts(opt ...Option) storeOptions {
	opts := storeDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}
