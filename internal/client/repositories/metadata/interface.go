// Package metadata is the client's local key/value store. The Outbound
// Credential Manager keeps the token pair here between CLI runs.
package metadata

import (
	"context"
)

// Repository returns common.ErrorNotFound from Get when key is absent.
// Delete of a missing key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string]string, error)
}
