// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package credentials persists the artifacts of a login and reads them back
with schema validation.

Values are JSON encoded and kept in a Storage, a small get/set/remove key
value port. MemoryStorage is meant for state that only lives as long as the
current session (such as an in-flight authorization flow); FileStorage keeps
one file per key and survives restarts.

Two loaders exist. LoadValidated treats a present but invalid value as an
error and returns a *ValidationError listing every reason. TryLoadValidated
is the defensive variant used to restore a previous session: it logs a
warning and returns nil instead.

	s := credentials.NewMemoryStorage()
	store, _ := credentials.NewStore(s)
	_ = store.SaveMatrixCredentials(ctx, &credentials.MatrixCredentials{
		UserID:   "@alice:example.org",
		DeviceID: "ABCDEFGHIJ",
	})
	creds := store.TryLoadMatrixCredentials(ctx)
*/
package credentials
