// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrIdGeneratorFailed          = errors.New("id generation failed")
	ErrUnsupportedChallengeMethod = errors.New("unsupported PKCE challenge method")

	// request categories, shared by metadata fetching and registration
	ErrRequestFailed = errors.New("network request failed")
	ErrResponseNotOK = errors.New("response status was not OK")
	ErrMalformedJSON = errors.New("response is not valid JSON")

	ErrMetadataFetchFailed = errors.New("unable to fetch auth metadata")
	ErrInvalidMetadata     = errors.New("auth metadata is invalid")

	ErrRegistrationFailed = errors.New("client registration failed")

	ErrRedirectConstructionFailed = errors.New("unable to construct authorization redirect")

	ErrCompletionFailed          = errors.New("login completion failed")
	ErrFlowNotFound              = errors.New("no authorization flow in progress")
	ErrExpiredFlow               = errors.New("authorization flow is expired")
	ErrResponseStateInvalid      = errors.New("oidc response state")
	ErrAuthorizationDenied       = errors.New("authorization server returned an error")
	ErrTokenExchangeFailed       = errors.New("token exchange failed")
	ErrMissingIdToken            = errors.New("id_token is missing")
	ErrIdTokenVerificationFailed = errors.New("id_token verification failed")
	ErrInvalidNonce              = errors.New("invalid nonce")
)

// IsRetryable reports whether err was caused by the network rather than by
// what a server answered. Retrying anything else will fail the same way.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRequestFailed)
}

// StatusError carries the status of a non-2xx response. It matches
// ErrResponseNotOK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s answered with status %d", e.URL, e.StatusCode)
}

// Is makes every *StatusError match ErrResponseNotOK.
func (e *StatusError) Is(target error) bool { return target == ErrResponseNotOK }
