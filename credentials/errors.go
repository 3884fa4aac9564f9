// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrStorageFailed    = errors.New("storage operation failed")
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError is returned when a stored value is present but is not
// valid JSON or does not pass its schema.
type ValidationError struct {
	// Key is the storage key of the invalid value.
	Key string

	// Err is the underlying failure; a *multierror.Error when the schema
	// rejected the value.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %q: %s", e.Key, strings.Join(e.Reasons(), "; "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is makes every *ValidationError match ErrValidationFailed.
func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// Reasons returns one message per problem found.
func (e *ValidationError) Reasons() []string {
	if e.Err == nil {
		return nil
	}
	var mErr *multierror.Error
	if errors.As(e.Err, &mErr) {
		reasons := make([]string, 0, len(mErr.Errors))
		for _, err := range mErr.Errors {
			reasons = append(reasons, err.Error())
		}
		return reasons
	}
	return []string{e.Err.Error()}
}
