// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import (
	"context"
	"encoding/json"
	"fmt"
)

// LoadValidated reads key from s, decodes it into a new T and validates it.
// It returns (nil, nil) when the key is absent and a *ValidationError when
// the stored value is malformed JSON or fails validation.
func LoadValidated[T any, PT interface {
	*T
	Validator
}](ctx context.Context, s Storage, key string) (PT, error) {
	const op = "credentials.LoadValidated"
	if s == nil {
		return nil, fmt.Errorf("%s: missing storage: %w", op, ErrNilParameter)
	}
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, nil
	}
	v := PT(new(T))
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("%s: %w", op, &ValidationError{Key: key, Err: err})
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, &ValidationError{Key: key, Err: err})
	}
	return v, nil
}

// TryLoadValidated is the defensive variant of LoadValidated: any failure is
// logged as a warning and nil is returned.
//
// Supported options:
//   - WithLogger
func TryLoadValidated[T any, PT interface {
	*T
	Validator
}](ctx context.Context, s Storage, key string, opt ...Option) PT {
	opts := getLoadOpts(opt...)
	v, err := LoadValidated[T, PT](ctx, s, key)
	if err != nil {
		opts.withLogger.Warn("ignoring stored value", "key", key, "error", err)
		return nil
	}
	return v
}

// SaveValidated validates v and stores its JSON encoding under key.
func SaveValidated(ctx context.Context, s Storage, key string, v Validator) error {
	const op = "credentials.SaveValidated"
	switch {
	case s == nil:
		return fmt.Errorf("%s: missing storage: %w", op, ErrNilParameter)
	case v == nil:
		return fmt.Errorf("%s: missing value: %w", op, ErrNilParameter)
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, &ValidationError{Key: key, Err: err})
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: unable to encode %q: %w", op, key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
