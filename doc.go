// Package mailnotify provides a Go client for the mail notification backend.
//
// The module is split into small packages:
//
//   - credential persists the access/refresh token pair (memory, file, redis)
//   - broadcast carries process-wide events such as a forced sign-out
//   - client performs authenticated JSON requests and transparently refreshes
//     an expired access token once per request
//   - session keeps the authenticated state and cached user profile
//   - api exposes typed backend resources (accounts, channels, rules, notifications)
//
// This package holds the error taxonomy and logging shared by all of them.
package mailnotify
