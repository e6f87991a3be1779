// Package cli is the HobbyVault command-line client.
//
// It runs either a single command given on the command line
// (register, login, whoami, logout, delete-account) or, with no command,
// an interactive REPL. The token pair is persisted in the local SQLite
// database, so a login survives between invocations and an expired access
// token is refreshed on the next protected call.
package cli
