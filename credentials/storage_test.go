// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorageContract(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(err)
	assert.False(ok)

	require.NoError(s.Set(ctx, "key", []byte(`{"a":1}`)))
	got, ok, err := s.Get(ctx, "key")
	require.NoError(err)
	assert.True(ok)
	assert.JSONEq(`{"a":1}`, string(got))

	require.NoError(s.Set(ctx, "key", []byte(`{"a":2}`)))
	got, _, err = s.Get(ctx, "key")
	require.NoError(err)
	assert.JSONEq(`{"a":2}`, string(got))

	require.NoError(s.Remove(ctx, "key"))
	_, ok, err = s.Get(ctx, "key")
	require.NoError(err)
	assert.False(ok)

	require.NoError(s.Remove(ctx, "key"))

	err = s.Set(ctx, "", []byte("x"))
	assert.ErrorIs(err, ErrInvalidParameter)
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()
	testStorageContract(t, NewMemoryStorage())

	t.Run("copies-values", func(t *testing.T) {
		ctx := context.Background()
		s := NewMemoryStorage()
		v := []byte("abc")
		require.NoError(t, s.Set(ctx, "k", v))
		v[0] = 'x'
		got, _, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
	})
	t.Run("concurrent", func(t *testing.T) {
		ctx := context.Background()
		s := NewMemoryStorage()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Set(ctx, "k", []byte("v"))
				_, _, _ = s.Get(ctx, "k")
				_ = s.Remove(ctx, "k")
			}()
		}
		wg.Wait()
	})
}

func TestFileStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("contract", func(t *testing.T) {
		s, err := NewFileStorage(ctx, t.TempDir())
		require.NoError(t, err)
		testStorageContract(t, s)
	})
	t.Run("creates-root-and-files", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		root := filepath.Join(t.TempDir(), "nested", "store")
		s, err := NewFileStorage(ctx, root)
		require.NoError(err)

		require.NoError(s.Set(ctx, MatrixCredentialsKey, []byte(`{}`)))
		info, err := os.Stat(filepath.Join(root, MatrixCredentialsKey+".json"))
		require.NoError(err)
		assert.False(info.IsDir())

		reopened, err := NewFileStorage(ctx, root)
		require.NoError(err)
		_, ok, err := reopened.Get(ctx, MatrixCredentialsKey)
		require.NoError(err)
		assert.True(ok)
	})
	t.Run("rejects-path-keys", func(t *testing.T) {
		s, err := NewFileStorage(ctx, t.TempDir())
		require.NoError(t, err)
		_, _, err = s.Get(ctx, "../escape")
		assert.ErrorIs(t, err, ErrInvalidParameter)
		err = s.Set(ctx, "a/b", nil)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
	t.Run("missing-root", func(t *testing.T) {
		_, err := NewFileStorage(ctx, " ")
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
}
