// Package authhttp talks to the auth backend's JSON endpoints. [API] implements both
// goAuthClient.Refresher and goAuthClient.Authenticator.
//
// API requests never go through the authenticated client's transport: the refresh call must
// not itself be subject to refresh.
package authhttp
