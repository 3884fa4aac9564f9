// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/viant/afs"
)

// fileMode keeps stored credentials readable by the owner only.
const fileMode = 0o600

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStorage is a durable Storage that keeps one JSON file per key below a
// root location. The root is anything github.com/viant/afs understands; a
// plain directory path is the common case.
type FileStorage struct {
	fs   afs.Service
	root string
	mu   sync.Mutex
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates a FileStorage rooted at root, creating it when it
// does not exist yet.
func NewFileStorage(ctx context.Context, root string) (*FileStorage, error) {
	const op = "credentials.NewFileStorage"
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%s: missing root: %w", op, ErrInvalidParameter)
	}
	fs := afs.New()
	exists, err := fs.Exists(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to stat %q: %w: %w", op, root, ErrStorageFailed, err)
	}
	if !exists {
		if err := fs.Create(ctx, root, 0o700, true); err != nil {
			return nil, fmt.Errorf("%s: unable to create %q: %w: %w", op, root, ErrStorageFailed, err)
		}
	}
	return &FileStorage{
		fs:   fs,
		root: strings.TrimRight(root, "/"),
	}, nil
}

func (s *FileStorage) location(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("key %q is not a valid file name: %w", key, ErrInvalidParameter)
	}
	return path.Join(s.root, key+".json"), nil
}

// Get implements Storage.
func (s *FileStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "credentials.(FileStorage).Get"
	loc, err := s.location(key)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := s.fs.Exists(ctx, loc)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w: %w", op, ErrStorageFailed, err)
	}
	if !exists {
		return nil, false, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, loc)
	if err != nil {
		return nil, false, fmt.Errorf("%s: unable to read %q: %w: %w", op, key, ErrStorageFailed, err)
	}
	return data, true, nil
}

// Set implements Storage.
func (s *FileStorage) Set(ctx context.Context, key string, value []byte) error {
	const op = "credentials.(FileStorage).Set"
	loc, err := s.location(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Upload(ctx, loc, fileMode, bytes.NewReader(value)); err != nil {
		return fmt.Errorf("%s: unable to write %q: %w: %w", op, key, ErrStorageFailed, err)
	}
	return nil
}

// Remove implements Storage.
func (s *FileStorage) Remove(ctx context.Context, key string) error {
	const op = "credentials.(FileStorage).Remove"
	loc, err := s.location(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := s.fs.Exists(ctx, loc)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageFailed, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, loc); err != nil {
		return fmt.Errorf("%s: unable to remove %q: %w: %w", op, key, ErrStorageFailed, err)
	}
	return nil
}
