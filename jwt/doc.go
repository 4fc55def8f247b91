// Package jwt mints and verifies access tokens and reads their expiry on the client side.
//
// [Manager] signs and verifies HS256 tokens and backs the authtest server.
// [Inspect] decodes the registered claims of a token without verifying the signature; the
// client uses it only to schedule refreshes and never to make authorization decisions.
package jwt
