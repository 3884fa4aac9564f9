// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)

	_, err := NewStore(nil)
	require.ErrorIs(err, ErrNilParameter)

	s, err := NewFileStorage(ctx, t.TempDir())
	require.NoError(err)
	store, err := NewStore(s)
	require.NoError(err)

	assert.Nil(store.TryLoadMatrixClientCredentials(ctx))
	assert.Nil(store.TryLoadOidcCredentials(ctx))
	assert.Nil(store.TryLoadMatrixCredentials(ctx))

	client := &MatrixClientCredentials{HomeserverURL: "https://matrix.example.org", AccessToken: "syt", RefreshToken: "syr"}
	oidcCreds := testOidcCredentials()
	matrixCreds := &MatrixCredentials{UserID: "@alice:example.org", DeviceID: "DEVICE"}

	require.NoError(store.SaveMatrixClientCredentials(ctx, client))
	require.NoError(store.SaveOidcCredentials(ctx, oidcCreds))
	require.NoError(store.SaveMatrixCredentials(ctx, matrixCreds))

	gotClient, err := store.LoadMatrixClientCredentials(ctx)
	require.NoError(err)
	assert.Equal(client, gotClient)
	gotOidc, err := store.LoadOidcCredentials(ctx)
	require.NoError(err)
	assert.Equal(oidcCreds, gotOidc)
	gotMatrix, err := store.LoadMatrixCredentials(ctx)
	require.NoError(err)
	assert.Equal(matrixCreds, gotMatrix)

	require.ErrorIs(store.SaveMatrixCredentials(ctx, nil), ErrNilParameter)
	require.ErrorIs(store.SaveOidcCredentials(ctx, &OidcCredentials{}), ErrValidationFailed)

	require.NoError(store.Clear(ctx))
	assert.Nil(store.TryLoadMatrixClientCredentials(ctx))
	assert.Nil(store.TryLoadOidcCredentials(ctx))
	assert.Nil(store.TryLoadMatrixCredentials(ctx))
}
