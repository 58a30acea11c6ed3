// Package auth implements the confirmation code based authentication used
// by the community api.
//
// Users never receive long lived credentials. Registering, logging in
// without a password and changing the password all follow the same path:
// a six digit code is kept in a CodeStore together with the pending
// operation and mailed to the user, exchanging that code (Authorize)
// completes the operation.
//
// A successful exchange creates a Connection (a row in the store) and
// returns a signed token that only carries the connection id. Tokens are
// checked against the registry on every request, so deleting a connection
// revokes its token immediately. Connections older than the configured
// TTL (one day by default) are deleted the next time they are used.
//
// The CodeStore lives in memory, pending operations are lost on restart.
package auth
