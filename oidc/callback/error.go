// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import "errors"

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrMissingLoginToken = errors.New("loginToken is missing")
	ErrLegacySsoFailed   = errors.New("legacy SSO login failed")
)
