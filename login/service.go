// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/matrix"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/oidc"
)

// Service runs the login flows for one Config. Flows are expected to run one
// at a time; the Service itself keeps no state between calls.
type Service struct {
	cfg    *Config
	store  *credentials.Store
	client *http.Client
	logger hclog.Logger
	clock  clockwork.Clock
}

// NewService creates a Service for cfg.
// Supported options:
//   - WithHTTPClient
//   - WithLogger
//   - WithClock
func NewService(cfg *Config, opt ...Option) (*Service, error) {
	const op = "login.NewService"
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getServiceOpts(opt...)
	client := opts.withHTTPClient
	if client == nil {
		var err error
		if client, err = cfg.HttpClient(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	store, err := credentials.NewStore(cfg.Storage, credentials.WithLogger(opts.withLogger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		client: client,
		logger: opts.withLogger,
		clock:  opts.withClock,
	}, nil
}

// StartLogin resolves serverNameOrURL to a homeserver, fetches its auth
// metadata and starts an OIDC login with StartOidcLoginFlow.
//
// When no homeserver can be determined the error matches
// ErrDiscoveryAmbiguous and nothing else happens.
//
// Supported options:
//   - WithRegistrationIntent
func (s *Service) StartLogin(ctx context.Context, serverNameOrURL string, opt ...Option) error {
	const op = "login.(Service).StartLogin"
	res, ok := matrix.Resolve(ctx, serverNameOrURL, matrix.WithHTTPClient(s.client), matrix.WithLogger(s.logger))
	if !ok {
		return fmt.Errorf("%s: %q: %w", op, serverNameOrURL, ErrDiscoveryAmbiguous)
	}
	md, err := oidc.FetchAuthMetadata(ctx, res.HomeserverURL, oidc.WithHTTPClient(s.client), oidc.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	opt = append(opt, WithIdentityServerURL(res.IdentityServerURL))
	if err := s.StartOidcLoginFlow(ctx, res.HomeserverURL, md, opt...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// StartOidcLoginFlow registers a client with the issuer described by md and
// then navigates to its authorization endpoint. Registration always comes
// first; when it fails the error is returned and no navigation happens.
//
// Supported options:
//   - WithRegistrationIntent
//   - WithIdentityServerURL
func (s *Service) StartOidcLoginFlow(ctx context.Context, homeserverURL string, md *oidc.AuthMetadata, opt ...Option) error {
	const op = "login.(Service).StartOidcLoginFlow"
	if md == nil {
		return fmt.Errorf("%s: missing auth metadata: %w", op, ErrNilParameter)
	}
	opts := getStartOpts(opt...)

	cm, err := s.cfg.ClientMetadata()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	clientID, err := oidc.RegisterClient(ctx, md, cm, oidc.WithHTTPClient(s.client), oidc.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	authOpts := []oidc.Option{
		oidc.WithStorage(s.cfg.SessionStorage),
		oidc.WithNavigator(s.cfg.Navigator),
		oidc.WithRedirectURL(s.cfg.AppURL),
		oidc.WithUILocales(s.cfg.UILocales...),
		oidc.WithFlowExpiry(s.cfg.FlowExpiry),
		oidc.WithIdentityServerURL(opts.withIdentityServerURL),
		oidc.WithNow(s.clock.Now),
		oidc.WithLogger(s.logger),
	}
	if opts.withRegistrationIntent {
		authOpts = append(authOpts, oidc.WithRegistrationIntent())
	}
	if err := oidc.StartAuthorization(ctx, md, clientID, homeserverURL, authOpts...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// StartLegacySsoLogin navigates to the homeserver's legacy SSO login. The
// homeserver comes back to the application page with a loginToken that
// CompleteLegacySsoLogin accepts.
func (s *Service) StartLegacySsoLogin(ctx context.Context, homeserverURL string) error {
	const op = "login.(Service).StartLegacySsoLogin"
	u, err := matrix.SSORedirectURL(homeserverURL, s.cfg.AppURL)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
	}
	if err := s.cfg.Navigator.Navigate(ctx, u); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompleteOidcLogin finishes the OIDC login that StartOidcLoginFlow started,
// confirms who logged in and persists the credentials.
func (s *Service) CompleteOidcLogin(ctx context.Context, code, state string) (*Session, error) {
	const op = "login.(Service).CompleteOidcLogin"
	res, err := oidc.CompleteAuthorization(ctx, code, state, s.completeOpts()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sess, err := s.establish(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

// CompleteOidcLoginRequest is CompleteOidcLogin for the request the
// authorization server redirected the user agent to.
func (s *Service) CompleteOidcLoginRequest(ctx context.Context, req *http.Request) (*Session, error) {
	const op = "login.(Service).CompleteOidcLoginRequest"
	res, err := oidc.CompleteAuthorizationRequest(ctx, req, s.completeOpts()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sess, err := s.establish(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

func (s *Service) completeOpts() []oidc.Option {
	return []oidc.Option{
		oidc.WithStorage(s.cfg.SessionStorage),
		oidc.WithHTTPClient(s.client),
		oidc.WithNow(s.clock.Now),
		oidc.WithLogger(s.logger),
	}
}

// CompleteLegacySsoLogin finishes a legacy SSO login with the loginToken the
// homeserver returned, confirms who logged in and persists the credentials.
// Failures are logged and reported only through ok.
func (s *Service) CompleteLegacySsoLogin(ctx context.Context, homeserverURL, loginToken string) (sess *Session, ok bool) {
	res, ok := CompleteLegacySsoLogin(ctx, homeserverURL, loginToken,
		WithHTTPClient(s.client),
		WithLogger(s.logger),
		WithClock(s.clock),
		WithDeviceDisplayName(s.cfg.DeviceDisplayName),
	)
	if !ok {
		return nil, false
	}
	sess, err := s.establish(ctx, res)
	if err != nil {
		s.logger.Warn("legacy SSO login failed", "homeserver", homeserverURL, "error", err)
		return nil, false
	}
	return sess, true
}

// establish confirms the identity behind res with whoami and persists the
// credentials of the new session.
func (s *Service) establish(ctx context.Context, res *oidc.LoginResult) (*Session, error) {
	const op = "login.(Service).establish"
	if res == nil {
		return nil, fmt.Errorf("%s: missing login result: %w", op, ErrNilParameter)
	}
	mc, err := matrix.NewClient(res.HomeserverURL,
		matrix.WithHTTPClient(s.client),
		matrix.WithLogger(s.logger),
		matrix.WithAccessToken(string(res.AccessToken)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrIdentityConfirmationFailed, err)
	}
	defer mc.Close()
	who, err := mc.WhoAmI(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrIdentityConfirmationFailed, err)
	}

	sess := &Session{
		Client: res.ClientCredentials(),
		Matrix: &credentials.MatrixCredentials{UserID: who.UserID, DeviceID: who.DeviceID},
		Oidc:   res.OidcCredentials(),
	}
	if sess.Matrix.DeviceID == "" {
		sess.Matrix.DeviceID = res.DeviceID
	}
	if err := s.persist(ctx, sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("logged in", "session", sess.String())
	return sess, nil
}

// persist validates every credential of sess before storing any of them.
func (s *Service) persist(ctx context.Context, sess *Session) error {
	const op = "login.(Service).persist"
	validators := []credentials.Validator{sess.Client, sess.Matrix}
	if sess.IsOidc() {
		validators = append(validators, sess.Oidc)
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrPersistFailed, err)
		}
	}

	if err := s.store.SaveMatrixClientCredentials(ctx, sess.Client); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrPersistFailed, err)
	}
	if sess.IsOidc() {
		if err := s.store.SaveOidcCredentials(ctx, sess.Oidc); err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrPersistFailed, err)
		}
	} else if err := s.cfg.Storage.Remove(ctx, credentials.OidcCredentialsKey); err != nil {
		return fmt.Errorf("%s: unable to remove stale oidc credentials: %w: %w", op, ErrPersistFailed, err)
	}
	if err := s.store.SaveMatrixCredentials(ctx, sess.Matrix); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrPersistFailed, err)
	}
	return nil
}

// RestoreSession returns the persisted session, or nil when there is none.
// Corrupted credentials are logged and treated as absent.
func (s *Service) RestoreSession(ctx context.Context) *Session {
	client := s.store.TryLoadMatrixClientCredentials(ctx)
	user := s.store.TryLoadMatrixCredentials(ctx)
	if client == nil || user == nil {
		return nil
	}
	return &Session{
		Client: client,
		Matrix: user,
		Oidc:   s.store.TryLoadOidcCredentials(ctx),
	}
}

// Logout ends the persisted session. The access token is revoked at the
// homeserver on a best effort basis; the stored credentials are removed in
// any case. It returns ErrNotLoggedIn when there was no session.
func (s *Service) Logout(ctx context.Context) error {
	const op = "login.(Service).Logout"
	sess := s.RestoreSession(ctx)
	if sess != nil {
		s.revoke(ctx, sess)
	}
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sess == nil {
		return fmt.Errorf("%s: %w", op, ErrNotLoggedIn)
	}
	s.logger.Info("logged out", "session", sess.String())
	return nil
}

func (s *Service) revoke(ctx context.Context, sess *Session) {
	mc, err := matrix.NewClient(sess.Client.HomeserverURL,
		matrix.WithHTTPClient(s.client),
		matrix.WithLogger(s.logger),
		matrix.WithAccessToken(sess.Client.AccessToken),
	)
	if err != nil {
		s.logger.Warn("unable to log out at the homeserver", "error", err)
		return
	}
	defer mc.Close()
	if err := mc.Logout(ctx); err != nil {
		if matrix.IsError(err, matrix.ErrCodeUnknownToken) {
			s.logger.Debug("access token was already invalid")
			return
		}
		s.logger.Warn("unable to log out at the homeserver", "error", err)
	}
}

// serviceOptions is the set of available options for NewService
type serviceOptions struct {
	withHTTPClient *http.Client
	withLogger     hclog.Logger
	withClock      clockwork.Clock
}

// serviceDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func serviceDefaults() serviceOptions {
	return serviceOptions{
		withLogger: hclog.NewNullLogger(),
		withClock:  clockwork.NewRealClock(),
	}
}

// getServiceOpts gets the defaults and applies the opt overrides passed in
func getServiceOpts(opt ...Option) serviceOptions {
	opts := serviceDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	if opts.withClock == nil {
		opts.withClock = clockwork.NewRealClock()
	}
	return opts
}
