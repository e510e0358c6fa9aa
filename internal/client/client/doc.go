// Package client is the authenticated HTTP client shared by every console
// screen.
//
// # Overview
//
// HTTPClient.Send attaches the session's bearer credential, dispatches the
// request and returns 2xx responses untouched. Every other outcome becomes
// an *APIError after the user has been notified once.
//
// # Credential refresh
//
// A 401 on any endpoint except login starts the refresh protocol. Only one
// refresh call is in flight at a time; concurrent callers wait for it and
// then replay their request once with the new credential. If the refresh
// fails, the session is cleared, the user is told the session expired and
// every waiter receives its original 401 error.
//
// # Error Handling
//
// *APIError matches the sentinel of its Kind with errors.Is: ErrUnauthorized,
// ErrForbidden, ErrNotFound, ErrConflict, ErrValidation, ErrRateLimited,
// ErrServer, ErrUnavailable and ErrUnknown.
package client
