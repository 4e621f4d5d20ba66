// Package common contains shared constants and error values used across
// the civicsync client components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer credential
// on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the credential token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// AnonymousReporter replaces the reporter name on anonymous submissions.
const AnonymousReporter = "Anonymous"
