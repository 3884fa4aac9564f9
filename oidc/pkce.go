// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

const (
	// S256 is the SHA-256 code challenge method. It is the only one
	// supported.
	S256 ChallengeMethod = "S256"
)

// RedactedCodeVerifier is the redacted string or json for a PKCE verifier
const RedactedCodeVerifier = "[REDACTED: code_verifier]"

// CodeVerifier is a PKCE code verifier together with its challenge.
type CodeVerifier interface {
	// Verifier returns the code verifier (see: RFC 7636 section 4.1)
	Verifier() string

	// Challenge returns the code challenge (see: RFC 7636 section 4.2)
	Challenge() string

	// Method returns the code challenge method (see: RFC 7636 section 4.2)
	Method() ChallengeMethod
}

// S256Verifier is a CodeVerifier using the S256 challenge method.
type S256Verifier struct {
	verifier  string
	challenge string
	method    ChallengeMethod
}

// ensure that S256Verifier implements the CodeVerifier interface
var _ CodeVerifier = (*S256Verifier)(nil)

// NewCodeVerifier creates a new S256Verifier.
func NewCodeVerifier() (*S256Verifier, error) {
	const op = "oidc.NewCodeVerifier"
	v := &S256Verifier{
		verifier: oauth2.GenerateVerifier(),
		method:   S256,
	}
	c, err := CreateCodeChallenge(v.method, v)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create code challenge: %w", op, err)
	}
	v.challenge = c
	return v, nil
}

// NewS256Verifier rebuilds a verifier from a stored verifier value.
func NewS256Verifier(verifier string) (*S256Verifier, error) {
	const op = "oidc.NewS256Verifier"
	if verifier == "" {
		return nil, fmt.Errorf("%s: missing verifier: %w", op, ErrInvalidParameter)
	}
	v := &S256Verifier{verifier: verifier, method: S256}
	c, err := CreateCodeChallenge(v.method, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v.challenge = c
	return v, nil
}

func (v *S256Verifier) Verifier() string        { return v.verifier }  // Verifier implements the CodeVerifier.Verifier() interface function.
func (v *S256Verifier) Challenge() string       { return v.challenge } // Challenge implements the CodeVerifier.Challenge() interface function.
func (v *S256Verifier) Method() ChallengeMethod { return v.method }    // Method implements the CodeVerifier.Method() interface function.

// String will redact the verifier
func (v *S256Verifier) String() string { return RedactedCodeVerifier }

// MarshalJSON will redact the verifier
func (v *S256Verifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedCodeVerifier)
}

// CreateCodeChallenge creates a code challenge from the verifier. Supported
// ChallengeMethods: S256
func CreateCodeChallenge(method ChallengeMethod, v CodeVerifier) (string, error) {
	const op = "oidc.CreateCodeChallenge"
	if v == nil {
		return "", fmt.Errorf("%s: missing verifier: %w", op, ErrNilParameter)
	}
	switch method {
	case S256:
		return oauth2.S256ChallengeFromVerifier(v.Verifier()), nil
	default:
		return "", fmt.Errorf("%s: %q: %w", op, method, ErrUnsupportedChallengeMethod)
	}
}
