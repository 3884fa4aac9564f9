// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrInvalidCACert    = errors.New("invalid CA certificate")

	// ErrDiscoveryAmbiguous means no homeserver could be determined for what
	// the user entered. Callers usually ask for a full homeserver URL.
	ErrDiscoveryAmbiguous = errors.New("unable to determine homeserver")

	ErrIdentityConfirmationFailed = errors.New("unable to confirm identity")
	ErrPersistFailed              = errors.New("unable to persist credentials")
	ErrNotLoggedIn                = errors.New("not logged in")
)
