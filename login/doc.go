// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package login ties homeserver discovery, OIDC authorization and credential
storage together into the login flows of a NeoBoard client.

A login starts with Service.StartLogin (or StartOidcLoginFlow when the auth
metadata is already known) which registers a client and navigates to the
authorization endpoint. When the user agent comes back to the application
page, CompleteOidcLogin (or CompleteLegacySsoLogin for a loginToken) confirms
the identity with whoami, persists the credentials and returns the Session.

RestoreSession loads a previously persisted Session and Logout ends it.
*/
package login
