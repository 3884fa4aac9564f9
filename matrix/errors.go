// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrRequestFailed     = errors.New("request failed")
	ErrMalformedResponse = errors.New("malformed response")
	ErrClientClosed      = errors.New("client is closed")
)

// Standard Matrix error codes.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeUnrecognized  = "M_UNRECOGNIZED"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnknown       = "M_UNKNOWN"
)

// Error is a structured error response from a homeserver. Use errors.As to
// get at it:
//
//	var mErr *matrix.Error
//	if errors.As(err, &mErr) && mErr.Code == matrix.ErrCodeForbidden { ... }
type Error struct {
	// Code is the Matrix errcode, e.g. "M_FORBIDDEN". It is empty when the
	// server answered with a body that is not a Matrix error.
	Code string `json:"errcode"`

	// Message is the human readable "error" field.
	Message string `json:"error"`

	StatusCode int `json:"-"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("matrix: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsError reports whether err is an *Error carrying the errcode.
func IsError(err error, code string) bool {
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// IsUnsupported reports whether err means the homeserver does not implement
// the endpoint: a 404, a 405 or an M_UNRECOGNIZED errcode.
func IsUnsupported(err error) bool {
	var mErr *Error
	if !errors.As(err, &mErr) {
		return false
	}
	return mErr.Code == ErrCodeUnrecognized || mErr.StatusCode == 404 || mErr.StatusCode == 405
}
