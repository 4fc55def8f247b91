// Package authtest runs an in-process auth backend for tests and load runs.
//
// The server issues real HS256 access tokens and rotating refresh tokens, serves a bearer
// protected /api/ echo route, and exposes controls to expire tokens, reject refreshes or hold
// the refresh endpoint open.
package authtest
