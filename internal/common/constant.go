package common

const (
	// AuthorizationHeader carries the bearer access token on HTTP requests.
	AuthorizationHeader = "Authorization"

	// AuthorizationMetadataKey is the gRPC metadata key for the same value.
	AuthorizationMetadataKey = "authorization"

	// BearerPrefix precedes the token inside the authorization value.
	BearerPrefix = "Bearer "
)
