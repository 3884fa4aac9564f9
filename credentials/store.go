// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Store saves and restores the credentials of a login session.
type Store struct {
	storage Storage
	logger  hclog.Logger
}

// NewStore creates a Store on top of s.
// Supported options:
//   - WithLogger
func NewStore(s Storage, opt ...Option) (*Store, error) {
	const op = "credentials.NewStore"
	if s == nil {
		return nil, fmt.Errorf("%s: missing storage: %w", op, ErrNilParameter)
	}
	opts := getStoreOpts(opt...)
	return &Store{storage: s, logger: opts.withLogger}, nil
}

// SaveMatrixClientCredentials validates and stores c.
func (s *Store) SaveMatrixClientCredentials(ctx context.Context, c *MatrixClientCredentials) error {
	const op = "credentials.(Store).SaveMatrixClientCredentials"
	if c == nil {
		return fmt.Errorf("%s: %w", op, ErrNilParameter)
	}
	if err := SaveValidated(ctx, s.storage, MatrixClientCredentialsKey, c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LoadMatrixClientCredentials is the strict loader for the stored
// MatrixClientCredentials.
func (s *Store) LoadMatrixClientCredentials(ctx context.Context) (*MatrixClientCredentials, error) {
	return LoadValidated[MatrixClientCredentials](ctx, s.storage, MatrixClientCredentialsKey)
}

// TryLoadMatrixClientCredentials is the defensive loader for the stored
// MatrixClientCredentials.
func (s *Store) TryLoadMatrixClientCredentials(ctx context.Context) *MatrixClientCredentials {
	return TryLoadValidated[MatrixClientCredentials](ctx, s.storage, MatrixClientCredentialsKey, WithLogger(s.logger))
}

// SaveOidcCredentials validates and stores c.
func (s *Store) SaveOidcCredentials(ctx context.Context, c *OidcCredentials) error {
	const op = "credentials.(Store).SaveOidcCredentials"
	if c == nil {
		return fmt.Errorf("%s: %w", op, ErrNilParameter)
	}
	if err := SaveValidated(ctx, s.storage, OidcCredentialsKey, c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LoadOidcCredentials is the strict loader for the stored OidcCredentials.
func (s *Store) LoadOidcCredentials(ctx context.Context) (*OidcCredentials, error) {
	return LoadValidated[OidcCredentials](ctx, s.storage, OidcCredentialsKey)
}

// TryLoadOidcCredentials is the defensive loader for the stored
// OidcCredentials.
func (s *Store) TryLoadOidcCredentials(ctx context.Context) *OidcCredentials {
	return TryLoadValidated[OidcCredentials](ctx, s.storage, OidcCredentialsKey, WithLogger(s.logger))
}

// SaveMatrixCredentials validates and stores c.
func (s *Store) SaveMatrixCredentials(ctx context.Context, c *MatrixCredentials) error {
	const op = "credentials.(Store).SaveMatrixCredentials"
	if c == nil {
		return fmt.Errorf("%s: %w", op, ErrNilParameter)
	}
	if err := SaveValidated(ctx, s.storage, MatrixCredentialsKey, c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LoadMatrixCredentials is the strict loader for the stored
// MatrixCredentials.
func (s *Store) LoadMatrixCredentials(ctx context.Context) (*MatrixCredentials, error) {
	return LoadValidated[MatrixCredentials](ctx, s.storage, MatrixCredentialsKey)
}

// TryLoadMatrixCredentials is the defensive loader for the stored
// MatrixCredentials.
func (s *Store) TryLoadMatrixCredentials(ctx context.Context) *MatrixCredentials {
	return TryLoadValidated[MatrixCredentials](ctx, s.storage, MatrixCredentialsKey, WithLogger(s.logger))
}

// Clear removes every stored credential. It tries all keys and reports
// every failure.
func (s *Store) Clear(ctx context.Context) error {
	const op = "credentials.(Store).Clear"
	var result *multierror.Error
	for _, key := range []string{MatrixClientCredentialsKey, OidcCredentialsKey, MatrixCredentialsKey} {
		if err := s.storage.Remove(ctx, key); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
		}
	}
	return result.ErrorOrNil()
}
