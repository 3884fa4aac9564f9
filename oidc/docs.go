// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
oidc is a package for logging in to a Matrix homeserver through its OIDC
authorization server (MSC2965 / MSC2966 / MSC2967).

# Primary types and functions provided by the package

  - AuthMetadata: the authorization server metadata a homeserver delegates to,
    fetched with FetchAuthMetadata. It carries the endpoints, the supported
    PKCE methods and prompts, and builds id_token verifiers.

  - ClientMetadata: the dynamic client registration request for the
    application, sent with RegisterClient to obtain a client id.

  - FlowState: one in-progress authorization code flow (state, nonce, PKCE
    verifier, device id and expiry). It is kept in session storage between
    StartAuthorization and CompleteAuthorization and can be used at most once.

  - LoginResult: the tokens and identity a completed login produced. The
    tokens are redacted types which never print their value.

  - Navigator: sends the user agent to a URL. BrowserNavigator opens the
    system browser.

# The oidc.callback package

The callback package includes the ability to create a http.HandlerFunc which
serves the redirect URI for both the OIDC and the legacy SSO login.
*/
package oidc
