// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/browser"
)

// Navigator sends the user agent to a URL. Navigating away ends the current
// flow; nothing is expected to happen after a successful Navigate.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a func to a Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, url string) error { return f(ctx, url) }

// BrowserNavigator opens URLs in the system browser.
type BrowserNavigator struct{}

// Navigate implements Navigator.
func (BrowserNavigator) Navigate(ctx context.Context, url string) error {
	const op = "oidc.(BrowserNavigator).Navigate"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("%s: unable to open browser: %w", op, err)
	}
	return nil
}

// TestNavigator records the URLs it is asked to navigate to.
type TestNavigator struct {
	mu   sync.Mutex
	urls []string
	err  error
}

// SetError makes every following Navigate fail with err.
func (n *TestNavigator) SetError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// Navigate implements Navigator.
func (n *TestNavigator) Navigate(_ context.Context, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.urls = append(n.urls, url)
	return nil
}

// URLs returns every URL navigated to, oldest first.
func (n *TestNavigator) URLs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

// Last returns the most recent URL, or "" when there is none.
func (n *TestNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urls) == 0 {
		return ""
	}
	return n.urls[len(n.urls)-1]
}
