// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package matrix is a small Matrix client/server API client covering what a
login flow needs: homeserver discovery from a server name, the delegated
auth discovery endpoints, token login, whoami and logout.

A Client is meant to be short-lived. Create one per operation, defer
Close() and drop it:

	c, err := matrix.NewClient(homeserverURL, matrix.WithAccessToken(token))
	if err != nil {
		// handle error
	}
	defer c.Close()
	who, err := c.WhoAmI(ctx)

Homeserver discovery never fails with an error. ResolveHomeserverURL
returns ok == false when no usable base URL could be determined, and the
caller should ask the user for something else.
*/
package matrix
