// Package goAuthClient is the client side of a JWT + rotating-refresh-token auth backend: an
// HTTP dispatcher that attaches bearer tokens and renews an expired access token exactly once,
// however many requests fail at the same time.
//
// Build a [Client] with [New], giving it at least a [Refresher]:
//
//	api := authhttp.New("https://api.example.com")
//	client, err := goAuthClient.New().
//		WithConfig(cfg).
//		WithRefresher(api).
//		WithSignOut(func(ctx context.Context, cause error) { /* back to the login screen */ }).
//		Build()
//
// # Refresh coordination
//
// The first request to see an auth failure (401 by default) starts the refresh. Requests that
// fail while it runs queue behind it and are released in arrival order with the new token.
// Each request is replayed at most once. A failed refresh is terminal: the stored session is
// cleared, every queued request gets [ErrSessionExpired] and the sign-out callback runs once.
//
// The refresh runs detached from the caller that triggered it and is bounded by
// Config.Refresh.Timeout, so a cancelled caller never fails the requests queued behind it.
//
// # What this package must NOT do
//
//   - Log token values. Fields named access_token, refresh_token, authorization and password
//     are dropped from every injected logger.
//   - Import any sub-package that re-imports goAuthClient (no import cycles).
package goAuthClient
