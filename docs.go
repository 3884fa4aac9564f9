// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// standalone provides a collection of related packages which log a NeoBoard
// standalone client in to a Matrix homeserver, either with the homeserver's
// OIDC authorization server or with its legacy SSO login.
//
// See the login package for the entry point and examples/cli for a complete
// program.
package standalone
