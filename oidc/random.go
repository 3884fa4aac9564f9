// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/hashicorp/go-uuid"
	"github.com/hashicorp/vault/sdk/helper/base62"
)

// RandomString returns n characters drawn uniformly from [A-Za-z0-9] using
// crypto/rand.
func RandomString(n int) (string, error) {
	const op = "oidc.RandomString"
	if n <= 0 {
		return "", fmt.Errorf("%s: length must be greater than zero: %w", op, ErrInvalidParameter)
	}
	s, err := base62.Random(n)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrIdGeneratorFailed, err)
	}
	return s, nil
}

// NewState returns an opaque value for the OAuth state parameter.
func NewState() (string, error) {
	const op = "oidc.NewState"
	s, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrIdGeneratorFailed, err)
	}
	return s, nil
}
