// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides callbacks (in the form of http.HandlerFunc)
for the application page the user agent returns to after an OIDC
authorization code flow or a legacy SSO login.
*/
package callback
