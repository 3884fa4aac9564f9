// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"
	sdkHttp "github.com/nordeck/matrix-neoboard-standalone-sub001/sdk/http"
	"golang.org/x/net/idna"
)

// DiscoveryState is the outcome of discovering one service entry.
type DiscoveryState string

const (
	// DiscoverySuccess means the entry was found and validated.
	DiscoverySuccess DiscoveryState = "SUCCESS"

	// DiscoveryPrompt means nothing was advertised and the user should be
	// asked.
	DiscoveryPrompt DiscoveryState = "PROMPT"

	// DiscoveryIgnore means the entry should be ignored.
	DiscoveryIgnore DiscoveryState = "IGNORE"

	// DiscoveryFailPrompt means discovery failed, but asking the user for a
	// URL is still reasonable.
	DiscoveryFailPrompt DiscoveryState = "FAIL_PROMPT"

	// DiscoveryFailError means the advertised configuration is broken.
	DiscoveryFailError DiscoveryState = "FAIL_ERROR"
)

// Discovery error messages carried by DiscoveryEntry.Error.
const (
	DiscoveryErrInvalidDomain     = "Invalid domain"
	DiscoveryErrGetConfig         = "Failed to get autodiscovery configuration from server"
	DiscoveryErrInvalidJSON       = "Invalid JSON"
	DiscoveryErrInvalidHSBaseURL  = "Invalid base_url for m.homeserver"
	DiscoveryErrInvalidHomeserver = "Homeserver URL does not appear to be a valid Matrix homeserver"
	DiscoveryErrInvalidISBaseURL  = "Invalid base_url for m.identity_server"
)

const wellKnownClientPath = "/.well-known/matrix/client"

// DiscoveryEntry is the discovered configuration of one service.
type DiscoveryEntry struct {
	State   DiscoveryState
	BaseURL string
	Error   string
}

// ClientWellKnown is the result of client discovery for a domain.
type ClientWellKnown struct {
	Homeserver     DiscoveryEntry
	IdentityServer DiscoveryEntry
}

// IsValidServerName reports whether s looks like a usable server name: a
// hostname, with or without a scheme and port, that contains at least one
// dot and no empty labels.
func IsValidServerName(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	raw := s
	if !strings.Contains(s, "://") {
		raw = "//" + s
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" || !strings.Contains(host, ".") {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return false
		}
	}
	return true
}

// IsAbsoluteURL reports whether s is an absolute http(s) URL with a host.
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolveHomeserverURL turns what a user typed (a URL or a server name) into
// a homeserver base URL.
//
// An absolute URL is returned unchanged without any network call. Anything
// else is looked up via .well-known discovery; the advertised base URL is
// returned without a trailing slash. When discovery yields nothing usable and
// the input is a valid server name, "https://<input>" is returned. Otherwise
// ok is false: no homeserver URL could be determined. That is not an error.
//
// Supported options:
//   - WithHTTPClient
//   - WithLogger
func ResolveHomeserverURL(ctx context.Context, input string, opt ...Option) (homeserverURL string, ok bool) {
	r, ok := Resolve(ctx, input, opt...)
	return r.HomeserverURL, ok
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	HomeserverURL string

	// IdentityServerURL is only set when discovery succeeded and advertised
	// a valid identity server.
	IdentityServerURL string
}

// Resolve works like ResolveHomeserverURL and also reports the identity
// server advertised by discovery.
//
// Supported options:
//   - WithHTTPClient
//   - WithLogger
func Resolve(ctx context.Context, input string, opt ...Option) (Resolution, bool) {
	if IsAbsoluteURL(input) {
		return Resolution{HomeserverURL: input}, true
	}
	opts := getDiscoveryOpts(opt...)
	domain := strings.TrimSpace(input)

	cfg := DiscoverClientConfig(ctx, domain, opt...)
	if cfg.Homeserver.State == DiscoverySuccess && cfg.Homeserver.BaseURL != "" {
		r := Resolution{HomeserverURL: cfg.Homeserver.BaseURL}
		if cfg.IdentityServer.State == DiscoverySuccess {
			r.IdentityServerURL = cfg.IdentityServer.BaseURL
		}
		return r, true
	}
	if IsValidServerName(domain) {
		opts.withLogger.Debug("discovery did not succeed, falling back to server name", "domain", domain, "state", cfg.Homeserver.State)
		return Resolution{HomeserverURL: serverNameURL(domain)}, true
	}
	opts.withLogger.Debug("unable to determine a homeserver URL", "input", input, "state", cfg.Homeserver.State, "error", cfg.Homeserver.Error)
	return Resolution{}, false
}

// DiscoverClientConfig fetches https://<domain>/.well-known/matrix/client and
// validates what it advertises. It issues exactly one well-known request and,
// when a homeserver base URL is advertised, one versions request against it.
//
// Supported options:
//   - WithHTTPClient
//   - WithLogger
func DiscoverClientConfig(ctx context.Context, domain string, opt ...Option) ClientWellKnown {
	opts := getDiscoveryOpts(opt...)
	logger := opts.withLogger

	cfg := ClientWellKnown{
		Homeserver:     DiscoveryEntry{State: DiscoveryFailError, Error: DiscoveryErrInvalidDomain},
		IdentityServer: DiscoveryEntry{State: DiscoveryPrompt},
	}
	if strings.TrimSpace(domain) == "" {
		return cfg
	}

	client := opts.withHTTPClient
	if client == nil {
		var err error
		if client, err = sdkHttp.NewClient(""); err != nil {
			logger.Error("unable to create http client", "error", err)
			cfg.Homeserver = DiscoveryEntry{State: DiscoveryFailPrompt, Error: DiscoveryErrGetConfig}
			return cfg
		}
		defer client.CloseIdleConnections()
	}

	doc, state, errMsg := fetchWellKnown(ctx, client, domain, logger)
	if state != DiscoverySuccess {
		cfg.Homeserver = DiscoveryEntry{State: state, Error: errMsg}
		return cfg
	}

	if doc.Homeserver == nil || doc.Homeserver.BaseURL == "" {
		logger.Warn("no m.homeserver base_url in well-known", "domain", domain)
		cfg.Homeserver = DiscoveryEntry{State: DiscoveryFailError, Error: DiscoveryErrInvalidHSBaseURL}
		return cfg
	}
	hsURL, ok := sanitizeBaseURL(doc.Homeserver.BaseURL)
	if !ok {
		logger.Warn("invalid m.homeserver base_url", "domain", domain, "base_url", doc.Homeserver.BaseURL)
		cfg.Homeserver = DiscoveryEntry{State: DiscoveryFailError, Error: DiscoveryErrInvalidHSBaseURL}
		return cfg
	}
	if err := checkHomeserver(ctx, hsURL, client, logger); err != nil {
		logger.Warn("advertised homeserver did not answer versions", "base_url", hsURL, "error", err)
		cfg.Homeserver = DiscoveryEntry{State: DiscoveryFailError, Error: DiscoveryErrInvalidHomeserver, BaseURL: hsURL}
		return cfg
	}
	cfg.Homeserver = DiscoveryEntry{State: DiscoverySuccess, BaseURL: hsURL}

	if doc.IdentityServer != nil {
		if isURL, ok := sanitizeBaseURL(doc.IdentityServer.BaseURL); ok {
			cfg.IdentityServer = DiscoveryEntry{State: DiscoverySuccess, BaseURL: isURL}
		} else {
			cfg.IdentityServer = DiscoveryEntry{State: DiscoveryFailError, Error: DiscoveryErrInvalidISBaseURL}
		}
	}
	return cfg
}

func fetchWellKnown(ctx context.Context, client *http.Client, domain string, logger hclog.Logger) (*ClientWellKnownDoc, DiscoveryState, string) {
	wellKnownURL := "https://" + domain + wellKnownClientPath
	if _, err := url.Parse(wellKnownURL); err != nil {
		return nil, DiscoveryFailPrompt, DiscoveryErrInvalidDomain
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnownURL, nil)
	if err != nil {
		return nil, DiscoveryFailPrompt, DiscoveryErrInvalidDomain
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		logger.Debug("well-known request failed", "url", wellKnownURL, "error", err)
		return nil, DiscoveryFailPrompt, DiscoveryErrGetConfig
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, DiscoveryPrompt, ""
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("well-known request returned an error", "url", wellKnownURL, "status", resp.StatusCode)
		return nil, DiscoveryFailPrompt, DiscoveryErrGetConfig
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, DiscoveryFailPrompt, DiscoveryErrGetConfig
	}
	var doc ClientWellKnownDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		logger.Debug("well-known response is not JSON", "url", wellKnownURL, "error", err)
		return nil, DiscoveryFailPrompt, DiscoveryErrInvalidJSON
	}
	return &doc, DiscoverySuccess, ""
}

func checkHomeserver(ctx context.Context, hsURL string, httpClient *http.Client, logger hclog.Logger) error {
	const op = "matrix.checkHomeserver"
	c, err := NewClient(hsURL, WithHTTPClient(httpClient), WithLogger(logger))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer c.Close()
	if _, err := c.Versions(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// serverNameURL builds https://<domain>, with internationalized labels
// converted to punycode.
func serverNameURL(domain string) string {
	ascii, err := idna.Punycode.ToASCII(domain)
	if err != nil {
		ascii = domain
	}
	return "https://" + ascii
}

// sanitizeBaseURL validates an advertised base URL and strips trailing
// slashes from it.
func sanitizeBaseURL(raw string) (string, bool) {
	if !IsAbsoluteURL(raw) {
		return "", false
	}
	return strings.TrimRight(raw, "/"), true
}

// discoveryOptions is the set of available options for discovery functions
type discoveryOptions struct {
	withHTTPClient *http.Client
	withLogger     hclog.Logger
}

// discoveryDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func discoveryDefaults() discoveryOptions {
	return discoveryOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getDiscoveryOpts gets the discovery defaults and applies the opt overrides
// passed in
func getDiscoveryOpts(opt ...Option) discoveryOptions {
	opts := discoveryDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}
