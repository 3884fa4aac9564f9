// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestNavigator(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	ctx := context.Background()
	n := &TestNavigator{}
	assert.Empty(n.Last())

	assert.NoError(n.Navigate(ctx, "https://example.com/one"))
	assert.NoError(n.Navigate(ctx, "https://example.com/two"))
	assert.Equal([]string{"https://example.com/one", "https://example.com/two"}, n.URLs())
	assert.Equal("https://example.com/two", n.Last())

	boom := errors.New("boom")
	n.SetError(boom)
	assert.ErrorIs(n.Navigate(ctx, "https://example.com/three"), boom)
	assert.Len(n.URLs(), 2)
}

func TestNavigatorFunc(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	var got string
	var n Navigator = NavigatorFunc(func(_ context.Context, url string) error {
		got = url
		return nil
	})
	assert.NoError(n.Navigate(context.Background(), "https://example.com"))
	assert.Equal("https://example.com", got)
}

func TestBrowserNavigator_canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := BrowserNavigator{}.Navigate(ctx, "https://example.com")
	assert.ErrorIs(t, err, context.Canceled)
}
