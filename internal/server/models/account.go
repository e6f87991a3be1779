// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a registered user. Email is stored normalized (trimmed,
// lower-case); PasswordHash is an argon2id PHC string, never the plaintext.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
