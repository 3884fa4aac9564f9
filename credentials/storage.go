// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import (
	"context"
	"fmt"
	"sync"
)

// Storage is a key/value store for JSON encoded values.
type Storage interface {
	// Get returns the value for key. ok is false when there is no value,
	// which is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// MemoryStorage is a Storage that lives in memory. It is safe for concurrent
// use.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string][]byte
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string][]byte{}}
}

// Get implements Storage.
func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	const op = "credentials.(MemoryStorage).Get"
	if key == "" {
		return nil, false, fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Storage.
func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	const op = "credentials.(MemoryStorage).Set"
	if key == "" {
		return fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Remove implements Storage.
func (s *MemoryStorage) Remove(_ context.Context, key string) error {
	const op = "credentials.(MemoryStorage).Remove"
	if key == "" {
		return fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
