// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/credentials"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/login"
	"github.com/nordeck/matrix-neoboard-standalone-sub001/oidc"
	"github.com/stretchr/testify/require"
)

const testAppURL = "https://board.example.com/"

func testSuccessFn(sess *login.Session, w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("login successful: " + sess.Matrix.UserID))
}

func testFailFn(respErr *AuthenErrorResponse, e error, w http.ResponseWriter, _ *http.Request) {
	if respErr != nil {
		w.WriteHeader(http.StatusUnauthorized)
	} else {
		respErr = &AuthenErrorResponse{Error: "internal-callback-error"}
		switch {
		case errors.Is(e, oidc.ErrResponseStateInvalid), errors.Is(e, oidc.ErrFlowNotFound), errors.Is(e, ErrMissingLoginToken):
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
		respErr.Description = e.Error()
	}
	_ = json.NewEncoder(w).Encode(respErr)
}

// testNewService creates a login.Service that talks to tp and returns it with
// the navigator it sends the user agent to.
func testNewService(t *testing.T, tp *oidc.TestProvider) (*login.Service, *oidc.TestNavigator) {
	t.Helper()
	require := require.New(t)
	nav := &oidc.TestNavigator{}
	cfg, err := login.NewConfig(testAppURL, credentials.NewMemoryStorage(), credentials.NewMemoryStorage(), nav)
	require.NoError(err)
	svc, err := login.NewService(cfg, login.WithHTTPClient(tp.HTTPClient()))
	require.NoError(err)
	return svc, nav
}
