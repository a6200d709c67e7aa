package common

// AuthorizationHeaderName is the gRPC metadata key carrying the bearer token
// on protected calls.
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the token inside the authorization header value.
const BearerPrefix = "Bearer "
