// Package client talks to the HobbyVault auth API.
//
// # Overview
//
// Client is the transport-agnostic contract used by the CLI. Two
// implementations exist:
//   - HTTPClient speaks the JSON API; its http.Client carries a
//     credentials.Transport.
//   - GRPCClient speaks the gRPC API; its connection carries the
//     credentials.Manager unary interceptor.
//
// Both keep the token pair in a credentials.Manager, so protected calls
// refresh once on an authentication failure and retry transparently.
//
// # Error Handling
//
// Server outcomes map to sentinel errors matched with errors.Is:
// ErrUnauthorized, ErrConflict, ErrInvalidInput, ErrUnavailable.
// Field-level validation detail is available through *InputError.
//
// # Local storage
//
// OpenDatabase opens the SQLite file that persists the token pair and
// applies the embedded goose migrations.
package client
