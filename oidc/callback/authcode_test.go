// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nordeck/matrix-neoboard-standalone-sub001/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCode(t *testing.T) {
	t.Parallel()
	tp := oidc.StartTestProvider(t)
	svc, _ := testNewService(t, tp)

	tests := []struct {
		name    string
		c       OidcCompleter
		sFn     SuccessResponseFunc
		eFn     ErrorResponseFunc
		wantErr bool
	}{
		{"valid", svc, testSuccessFn, testFailFn, false},
		{"nil-completer", nil, testSuccessFn, testFailFn, true},
		{"nil-sFn", svc, nil, testFailFn, true},
		{"nil-eFn", svc, testSuccessFn, nil, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := AuthCode(tt.c, tt.sFn, tt.eFn)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, ErrInvalidParameter)
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func Test_AuthCodeResponses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name                string
		deny                bool
		stateOverride       string
		replay              bool
		wantStatusCode      int
		wantRespError       string
		wantRespDescription string
	}{
		{
			name:           "basic",
			wantStatusCode: http.StatusOK,
		},
		{
			name:                "denied",
			deny:                true,
			wantStatusCode:      http.StatusUnauthorized,
			wantRespError:       "access_denied",
			wantRespDescription: "The user denied the request",
		},
		{
			name:                "state-not-matching",
			stateOverride:       "not-matching",
			wantStatusCode:      http.StatusBadRequest,
			wantRespError:       "internal-callback-error",
			wantRespDescription: oidc.ErrResponseStateInvalid.Error(),
		},
		{
			name:                "replayed",
			replay:              true,
			wantStatusCode:      http.StatusBadRequest,
			wantRespError:       "internal-callback-error",
			wantRespDescription: oidc.ErrFlowNotFound.Error(),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			tp := oidc.StartTestProvider(t)
			if tt.deny {
				tp.DenyAuthorization()
			}
			svc, nav := testNewService(t, tp)
			h, err := AuthCode(svc, testSuccessFn, testFailFn)
			require.NoError(err)

			require.NoError(svc.StartLogin(ctx, tp.Addr()))
			redirect := tp.Authorize(t, nav.Last())
			if tt.stateOverride != "" {
				q := redirect.Query()
				q.Set("state", tt.stateOverride)
				redirect.RawQuery = q.Encode()
			}
			if tt.replay {
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, redirect.String(), nil))
				require.Equal(http.StatusOK, rec.Code)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, redirect.String(), nil))
			resp := rec.Result()
			defer resp.Body.Close()
			contents, err := io.ReadAll(resp.Body)
			require.NoError(err)

			assert.Equal(tt.wantStatusCode, resp.StatusCode)
			if tt.wantRespError != "" {
				var errResp AuthenErrorResponse
				require.NoError(json.Unmarshal(contents, &errResp))
				assert.Equal(tt.wantRespError, errResp.Error)
				assert.Contains(errResp.Description, tt.wantRespDescription)
				if tt.replay {
					// the first completion's session survives the replay
					sess := svc.RestoreSession(ctx)
					require.NotNil(sess)
					assert.Equal(tp.UserID(), sess.Matrix.UserID)
					return
				}
				assert.Nil(svc.RestoreSession(ctx))
				return
			}
			assert.Equal("login successful: "+tp.UserID(), string(contents))
			assert.NotNil(svc.RestoreSession(ctx))
		})
	}
}
