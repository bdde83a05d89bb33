package auth

import "time"

// Token is a persisted registry credential. Only the sha256 derivation of the
// key is ever stored; the plaintext key exists exactly once, in the response
// to the generate call.
type Token struct {
	ID        string
	UserID    string
	Name      string
	KeyHash   string
	CreatedAt time.Time
}
