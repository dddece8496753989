// Package security models the authenticated identity of a request: tokens, roles,
// the impersonation ("switch user") marker and the request-bound security context.
package security
