// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/oidc/internal/strutils"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// Paths served by TestProvider.
const (
	testPathClientWellKnown = "/.well-known/matrix/client"
	testPathVersions        = "/_matrix/client/versions"
	testPathAuthMetadata    = "/_matrix/client/v1/auth_metadata"
	testPathAuthIssuer      = "/_matrix/client/unstable/org.matrix.msc2965/auth_issuer"
	testPathLogin           = "/_matrix/client/v3/login"
	testPathWhoAmI          = "/_matrix/client/v3/account/whoami"
	testPathLogout          = "/_matrix/client/v3/logout"
	testPathOpenIDConfig    = "/.well-known/openid-configuration"
	testPathAuthorize       = "/authorize"
	testPathToken           = "/oauth2/token"
	testPathRegistration    = "/oauth2/registration"
	testPathKeys            = "/oauth2/keys.json"
)

const testKeyID = "test-signing-key"

// TestProvider is a local TLS server that plays both a Matrix homeserver and
// its delegated OAuth 2.0 issuer. It serves the client well-known, versions,
// auth_metadata, auth_issuer, login, whoami and logout endpoints, plus the
// issuer's discovery, keys, registration, authorize and token endpoints.
//
// Tests use HTTPClient() (or CACert()) to trust it and Authorize to play the
// user agent at the authorization endpoint.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	ecdsaPublicKey  string
	ecdsaPrivateKey string
	jwks            *jose.JSONWebKeySet

	mu                  sync.Mutex
	userID              string
	replySubject        string
	nextClientID        string
	registrations       []ClientMetadata
	failRegistration    bool
	disableAuthMetadata bool
	omitRegistration    bool
	omitIDToken         bool
	emptyKeys           bool
	denyAuthorization   bool
	customClaims        map[string]interface{}
	customAudience      string
	expiresIn           int
	codes               map[string]testAuthRequest
	lastAuthRequest     url.Values
	loginTokens         map[string]bool
	sessions            map[string]testSession
	hits                map[string]int

	t *testing.T
}

// testAuthRequest is what the authorize endpoint remembers about a code.
type testAuthRequest struct {
	clientID    string
	redirectURI string
	challenge   string
	nonce       string
	deviceID    string
}

// testSession is an access token issued by the provider.
type testSession struct {
	userID   string
	deviceID string
}

// StartTestProvider creates a disposable TestProvider that is stopped when
// the test finishes.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		userID:       "@alice:example.com",
		replySubject: "01HZ0ALICE",
		nextClientID: "01HZCLIENT",
		expiresIn:    300,
		codes:        map[string]testAuthRequest{},
		loginTokens:  map[string]bool{},
		sessions:     map[string]testSession{},
		hits:         map[string]int{},
		t:            t,
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = TestJWKS(t, p.ecdsaPublicKey, testKeyID)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()
	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the homeserver base URL, without a trailing slash.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// Domain returns the host:port of the provider, usable as a server name for
// client discovery.
func (p *TestProvider) Domain() string { return p.httpServer.Listener.Addr().String() }

// Issuer returns the issuer identifier.
func (p *TestProvider) Issuer() string { return p.Addr() + "/" }

// CACert returns the pem-encoded CA certificate used by the provider.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns a client that trusts the provider.
func (p *TestProvider) HTTPClient() *http.Client { return p.httpServer.Client() }

// UserID returns the Matrix user id logins are issued for.
func (p *TestProvider) UserID() string { return p.userID }

// Subject returns the sub claim of issued id_tokens.
func (p *TestProvider) Subject() string { return p.replySubject }

// SetNextClientID sets the client_id returned by the next registrations.
func (p *TestProvider) SetNextClientID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextClientID = id
}

// Registrations returns the client metadata of every registration request.
func (p *TestProvider) Registrations() []ClientMetadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ClientMetadata(nil), p.registrations...)
}

// FailRegistration makes the registration endpoint answer with an error.
func (p *TestProvider) FailRegistration() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failRegistration = true
}

// OmitRegistration removes registration_endpoint from the metadata.
func (p *TestProvider) OmitRegistration() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitRegistration = true
}

// DisableAuthMetadata makes the homeserver answer auth_metadata with
// M_UNRECOGNIZED, so clients fall back to auth_issuer discovery.
func (p *TestProvider) DisableAuthMetadata() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableAuthMetadata = true
}

// OmitIDTokens makes the token endpoint leave out the id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// EmptyKeys makes the keys endpoint serve {"keys": []}.
func (p *TestProvider) EmptyKeys() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emptyKeys = true
}

// DenyAuthorization makes the authorize endpoint redirect with
// error=access_denied.
func (p *TestProvider) DenyAuthorization() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denyAuthorization = true
}

// SetCustomClaims sets claims added to issued id_tokens. They override the
// provider's own private claims, including nonce.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetCustomAudience sets the aud of issued id_tokens.
func (p *TestProvider) SetCustomAudience(customAudience string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = customAudience
}

// AddLoginToken makes token a valid m.login.token login token.
func (p *TestProvider) AddLoginToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loginTokens[token] = true
}

// LastAuthRequest returns the query of the last authorize request.
func (p *TestProvider) LastAuthRequest() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAuthRequest
}

// HasSession reports whether accessToken is a valid access token.
func (p *TestProvider) HasSession(accessToken string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sessions[accessToken]
	return ok
}

// HitCount returns how often path was requested.
func (p *TestProvider) HitCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

// Authorize plays the user agent: it requests authURL without following the
// redirect and returns the URL the provider redirected to.
func (p *TestProvider) Authorize(t *testing.T, authURL string) *url.URL {
	t.Helper()
	require := require.New(t)
	client := *p.HTTPClient()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := client.Get(authURL)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)
	loc, err := resp.Location()
	require.NoError(err)
	return loc
}

// Metadata returns the auth metadata the provider serves.
func (p *TestProvider) Metadata() AuthMetadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metadata()
}

func (p *TestProvider) metadata() AuthMetadata {
	md := AuthMetadata{
		Issuer:                           p.Issuer(),
		AuthorizationEndpoint:            p.Addr() + testPathAuthorize,
		TokenEndpoint:                    p.Addr() + testPathToken,
		RegistrationEndpoint:             p.Addr() + testPathRegistration,
		JWKSURI:                          p.Addr() + testPathKeys,
		ResponseTypesSupported:           []string{"code"},
		ResponseModesSupported:           []string{"query", "fragment"},
		GrantTypesSupported:              []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported:    []string{string(S256)},
		PromptValuesSupported:            []string{"create"},
		IdTokenSigningAlgValuesSupported: []string{string(jose.ES256)},
	}
	if p.omitRegistration {
		md.RegistrationEndpoint = ""
	}
	return md
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, status int, out interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}

func (p *TestProvider) writeMatrixError(w http.ResponseWriter, status int, code, msg string) {
	p.writeJSON(w, status, map[string]string{"errcode": code, "error": msg})
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()
	redirect, err := url.Parse(qv.Get("redirect_uri"))
	if err != nil || qv.Get("redirect_uri") == "" {
		p.writeTokenErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage)
		return
	}
	rq := redirect.Query()
	rq.Set("state", qv.Get("state"))
	rq.Set("error", errorCode)
	if errorMessage != "" {
		rq.Set("error_description", errorMessage)
	}
	redirect.RawQuery = rq.Encode()
	http.Redirect(w, req, redirect.String(), http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) {
	p.writeJSON(w, statusCode, struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	})
}

// bearer returns the session of the request's access token.
func (p *TestProvider) bearer(req *http.Request) (string, testSession, bool) {
	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", testSession{}, false
	}
	s, ok := p.sessions[token]
	return token, s, ok
}

// issueToken creates a new access token for deviceID.
func (p *TestProvider) issueToken(deviceID string) (string, string) {
	accessToken, err := RandomString(20)
	require.NoError(p.t, err)
	refreshToken, err := RandomString(20)
	require.NoError(p.t, err)
	p.sessions["mat_"+accessToken] = testSession{userID: p.userID, deviceID: deviceID}
	return "mat_" + accessToken, "mar_" + refreshToken
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hits[req.URL.Path]++

	switch req.URL.Path {
	case testPathClientWellKnown:
		p.writeJSON(w, http.StatusOK, map[string]interface{}{
			"m.homeserver": map[string]string{"base_url": p.Addr()},
		})

	case testPathVersions:
		p.writeJSON(w, http.StatusOK, map[string]interface{}{"versions": []string{"v1.10", "v1.11"}})

	case testPathAuthMetadata:
		if p.disableAuthMetadata {
			p.writeMatrixError(w, http.StatusNotFound, "M_UNRECOGNIZED", "Unrecognized request")
			return
		}
		p.writeJSON(w, http.StatusOK, p.metadata())

	case testPathAuthIssuer:
		p.writeJSON(w, http.StatusOK, map[string]string{"issuer": p.Issuer()})

	case testPathOpenIDConfig:
		p.writeJSON(w, http.StatusOK, p.metadata())

	case testPathKeys:
		if p.emptyKeys {
			p.writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}})
			return
		}
		p.writeJSON(w, http.StatusOK, p.jwks)

	case testPathRegistration:
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var cm ClientMetadata
		if err := json.NewDecoder(req.Body).Decode(&cm); err != nil {
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_client_metadata", err.Error())
			return
		}
		p.registrations = append(p.registrations, cm)
		if p.failRegistration {
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_redirect_uri", "redirect_uri is not allowed")
			return
		}
		p.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"client_id":           p.nextClientID,
			"redirect_uris":       cm.RedirectURIs,
			"client_id_issued_at": time.Now().Unix(),
		})

	case testPathAuthorize:
		p.serveAuthorize(w, req)

	case testPathToken:
		p.serveToken(w, req)

	case testPathLogin:
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Type  string `json:"type"`
			Token string `json:"token"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			p.writeMatrixError(w, http.StatusBadRequest, "M_NOT_JSON", err.Error())
			return
		}
		if body.Type != "m.login.token" || !p.loginTokens[body.Token] {
			p.writeMatrixError(w, http.StatusForbidden, "M_FORBIDDEN", "Invalid login token")
			return
		}
		delete(p.loginTokens, body.Token)
		deviceID, err := RandomString(10)
		require.NoError(p.t, err)
		accessToken, refreshToken := p.issueToken(deviceID)
		p.writeJSON(w, http.StatusOK, map[string]interface{}{
			"user_id":       p.userID,
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"device_id":     deviceID,
		})

	case testPathWhoAmI:
		_, s, ok := p.bearer(req)
		if !ok {
			p.writeMatrixError(w, http.StatusUnauthorized, "M_UNKNOWN_TOKEN", "Invalid access token")
			return
		}
		p.writeJSON(w, http.StatusOK, map[string]string{"user_id": s.userID, "device_id": s.deviceID})

	case testPathLogout:
		token, _, ok := p.bearer(req)
		if !ok {
			p.writeMatrixError(w, http.StatusUnauthorized, "M_UNKNOWN_TOKEN", "Invalid access token")
			return
		}
		delete(p.sessions, token)
		p.writeJSON(w, http.StatusOK, map[string]interface{}{})

	default:
		p.writeMatrixError(w, http.StatusNotFound, "M_UNRECOGNIZED", "Unrecognized request")
	}
}

func (p *TestProvider) serveAuthorize(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	qv := req.URL.Query()
	p.lastAuthRequest = qv

	scopes := strings.Fields(qv.Get("scope"))
	var deviceID string
	for _, s := range scopes {
		if id, ok := strings.CutPrefix(s, ScopeMatrixDevicePrefix); ok {
			deviceID = id
		}
	}
	switch {
	case qv.Get("redirect_uri") == "":
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "missing redirect_uri parameter")
		return
	case qv.Get("response_type") != "code":
		p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
		return
	case !strutils.StrListContainsAll(scopes, "openid", ScopeMatrixAPI) || deviceID == "":
		p.writeAuthErrorResponse(w, req, "invalid_scope", "")
		return
	case qv.Get("code_challenge_method") != string(S256) || qv.Get("code_challenge") == "":
		p.writeAuthErrorResponse(w, req, "invalid_request", "PKCE with S256 is required")
		return
	case qv.Get("state") == "":
		p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
		return
	case p.denyAuthorization:
		p.writeAuthErrorResponse(w, req, "access_denied", "The user denied the request")
		return
	}

	code, err := RandomString(16)
	require.NoError(p.t, err)
	p.codes[code] = testAuthRequest{
		clientID:    qv.Get("client_id"),
		redirectURI: qv.Get("redirect_uri"),
		challenge:   qv.Get("code_challenge"),
		nonce:       qv.Get("nonce"),
		deviceID:    deviceID,
	}

	redirect, err := url.Parse(qv.Get("redirect_uri"))
	require.NoError(p.t, err)
	rq := redirect.Query()
	rq.Set("state", qv.Get("state"))
	rq.Set("code", code)
	redirect.RawQuery = rq.Encode()
	http.Redirect(w, req, redirect.String(), http.StatusFound)
}

func (p *TestProvider) serveToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ar, ok := p.codes[req.FormValue("code")]
	switch {
	case req.FormValue("grant_type") != "authorization_code":
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "bad grant_type")
		return
	case !ok:
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
		return
	case req.FormValue("client_id") != ar.clientID:
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_client", "client_id does not match")
		return
	case req.FormValue("redirect_uri") != ar.redirectURI:
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "redirect_uri does not match")
		return
	case oauth2.S256ChallengeFromVerifier(req.FormValue("code_verifier")) != ar.challenge:
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "code_verifier does not match")
		return
	}
	delete(p.codes, req.FormValue("code"))

	now := time.Now()
	stdClaims := jwt.Claims{
		Subject:   p.replySubject,
		Issuer:    p.Issuer(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(5 * time.Minute)),
		Audience:  jwt.Audience{ar.clientID},
	}
	if p.customAudience != "" {
		stdClaims.Audience = jwt.Audience{p.customAudience}
	}
	privateClaims := map[string]interface{}{
		"nonce":     ar.nonce,
		"auth_time": now.Unix(),
	}
	for k, v := range p.customClaims {
		privateClaims[k] = v
	}

	accessToken, refreshToken := p.issueToken(ar.deviceID)
	reply := struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		IDToken      string `json:"id_token,omitempty"`
	}{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    p.expiresIn,
	}
	if !p.omitIDToken {
		reply.IDToken = TestSignJWT(p.t, p.ecdsaPrivateKey, testKeyID, stdClaims, privateClaims)
	}
	p.writeJSON(w, http.StatusOK, &reply)
}
