// Package common contains shared constants and sentinel errors used across
// the console components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access
// token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName correlates a client request with server-side logs.
const RequestIDHeaderName = "X-Request-ID"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// FilterAll is the filter value meaning "filter not applied".
const FilterAll = "all"

// Keys of the durable session entries.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	UserKey         = "user"
)
