// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/login"
)

// LegacySsoCompleter finishes a legacy SSO login with the loginToken the
// homeserver returned. *login.Service implements it.
type LegacySsoCompleter interface {
	CompleteLegacySsoLogin(ctx context.Context, homeserverURL, loginToken string) (*login.Session, bool)
}

// LegacySso creates a callback handler for the loginToken a homeserver's
// legacy SSO redirect returns to homeserverURL's client.
func LegacySso(c LegacySsoCompleter, homeserverURL string, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.LegacySso"
	switch {
	case c == nil:
		return nil, fmt.Errorf("%s: completer is nil: %w", op, ErrInvalidParameter)
	case homeserverURL == "":
		return nil, fmt.Errorf("%s: homeserver URL is empty: %w", op, ErrInvalidParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, ErrInvalidParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, ErrInvalidParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		token := req.FormValue("loginToken")
		if token == "" {
			eFn(nil, fmt.Errorf("%s: %w", op, ErrMissingLoginToken), w, req)
			return
		}
		sess, ok := c.CompleteLegacySsoLogin(req.Context(), homeserverURL, token)
		if !ok {
			eFn(nil, fmt.Errorf("%s: %w", op, ErrLegacySsoFailed), w, req)
			return
		}
		sFn(sess, w, req)
	}, nil
}

// Dispatch serves the application page. Requests carrying a loginToken go to
// legacy, requests carrying an OAuth state or error go to authCode and
// everything else goes to next. A nil handler is skipped.
func Dispatch(authCode, legacy, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		switch {
		case legacy != nil && q.Get("loginToken") != "":
			legacy.ServeHTTP(w, req)
		case authCode != nil && (q.Get("state") != "" || q.Get("error") != ""):
			authCode.ServeHTTP(w, req)
		case next != nil:
			next.ServeHTTP(w, req)
		default:
			http.NotFound(w, req)
		}
	}
}
