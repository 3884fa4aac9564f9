// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package http builds the HTTP clients used to talk to homeservers and
// OAuth issuers.
package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
)

var ErrInvalidCertificatePem = errors.New("invalid certificate PEM")

const (
	// DefaultTimeout bounds every request made by clients from NewClient.
	DefaultTimeout = 30 * time.Second

	// UserAgent is sent by clients from NewClient unless the request sets
	// its own.
	UserAgent = "matrix-neoboard-standalone"
)

// NewClient creates a new http client which will use the optional CA
// certificate PEM if provided, otherwise it will use the installed system CA
// chain. Homeservers and issuers are only reached over TLS 1.2 or later.
func NewClient(caPEM string) (*http.Client, error) {
	tr := cleanhttp.DefaultPooledTransport()
	tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, ErrInvalidCertificatePem
		}
		tr.TLSClientConfig.RootCAs = certPool
	}

	return &http.Client{
		Transport: &userAgentTransport{base: tr},
		Timeout:   DefaultTimeout,
	}, nil
}

type userAgentTransport struct {
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}
	return t.base.RoundTrip(req)
}

// ClientContext returns a new Context that carries the provided HTTP client.
// It sets the same context key used by the github.com/coreos/go-oidc and
// golang.org/x/oauth2 packages, so the returned context works for those
// packages as well.
func ClientContext(ctx context.Context, client *http.Client) context.Context {
	return oidc.ClientContext(ctx, client)
}
