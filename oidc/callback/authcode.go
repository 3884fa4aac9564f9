// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/login"
)

// OidcCompleter finishes an OIDC login from the redirect request.
// *login.Service implements it.
type OidcCompleter interface {
	CompleteOidcLoginRequest(ctx context.Context, req *http.Request) (*login.Session, error)
}

// AuthCode creates an oidc authorization code callback handler. The
// completer reads code and state (or the error response) from the request,
// checks them against the stored flow and persists the new session.
//
// The SuccessResponseFunc is used to create a response when callback is
// successful. The ErrorResponseFunc is to create a response when the callback
// fails.
func AuthCode(c OidcCompleter, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	switch {
	case c == nil:
		return nil, fmt.Errorf("%s: completer is nil: %w", op, ErrInvalidParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, ErrInvalidParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, ErrInvalidParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		sess, err := c.CompleteOidcLoginRequest(req.Context(), req)
		if err != nil {
			var respErr *AuthenErrorResponse
			if e := req.FormValue("error"); e != "" {
				respErr = &AuthenErrorResponse{
					Error:       e,
					Description: req.FormValue("error_description"),
					Uri:         req.FormValue("error_uri"),
				}
			}
			eFn(respErr, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		sFn(sess, w, req)
	}, nil
}
