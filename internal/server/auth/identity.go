package auth

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
)

// Identity is the authenticated caller. The Gatekeeper sets it once per
// request; downstream code only reads it.
type Identity struct {
	AccountID string
	Email     string
}

type identityKey struct{}

// WithIdentity returns a child context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity, if the request passed the
// Gatekeeper.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// value. The scheme match is case-insensitive.
func BearerToken(header string) (string, bool) {
	if len(header) < len(common.BearerPrefix) || !strings.EqualFold(header[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(common.BearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// Authenticate is the transport-independent Gatekeeper check: parse the
// bearer header, verify it with the access codec, return the identity.
// Every failure is common.ErrorUnauthorized.
func Authenticate(codec *Codec, header string) (Identity, error) {
	token, ok := BearerToken(header)
	if !ok {
		return Identity{}, common.ErrorUnauthorized
	}
	claims, err := codec.Verify(token)
	if err != nil {
		return Identity{}, common.ErrorUnauthorized
	}
	return Identity{AccountID: claims.AccountID, Email: claims.Email}, nil
}
