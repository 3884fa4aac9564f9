// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/login"
)

// SuccessResponseFunc is used by Callbacks to create a http response when the
// callback is successful.
//
// The session is the logged in user; its credentials are already persisted.
// The function should use the http.ResponseWriter to send back whatever
// content (headers, html, JSON, etc) it wishes to the user agent.
type SuccessResponseFunc func(sess *login.Session, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Callbacks to create a http response when the
// callback fails.
//
// respErr is set when the authorization server answered with an error
// response. e is the error raised while processing the request and is always
// set.
type ErrorResponseFunc func(respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}
