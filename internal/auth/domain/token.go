package domain

import "time"

// SessionToken is the stored record of an issued session token. Only a
// SHA-256 fingerprint of the JWT is persisted, never the token itself.
type SessionToken struct {
	ID        string // ULID
	UserID    string
	TokenHash string // SHA-256 fingerprint of the signed token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// LoginResult is returned by the credential step. Exactly one of Session
// or Challenge is populated.
type LoginResult struct {
	Session   *SessionResponse
	Challenge *ChallengeResponse
}

// SessionResponse carries a full session token.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ChallengeResponse is returned when the account has a second factor
// enrolled and the password step succeeded.
type ChallengeResponse struct {
	TwoFactorRequired bool      `json:"twoFactorRequired"` // always true
	ChallengeToken    string    `json:"challengeToken"`
	ExpiresAt         time.Time `json:"expiresAt"`
}
