package domain

import "time"

// User is an account record. TwoFactorSecret is written at enrollment but
// TwoFactorEnabled only flips once the user has proven possession of the
// secret with a valid code.
type User struct {
	ID               string
	Username         string
	PasswordHash     string     // argon2id encoded
	TwoFactorEnabled bool       // true only after a confirmed enrollment
	TwoFactorSecret  *string    // base32, no padding (nullable)
	RecoveryCodes    []string   // remaining single-use recovery codes
	FailedLoginCount int        // consecutive failed password attempts
	LockedUntil      *time.Time // account locked until this time (nullable)
	LastLoginAt      *time.Time // last successful full login (nullable)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Locked reports whether the account is locked out at the given time.
func (u User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Profile is the public view of a user returned by the profile endpoint.
type Profile struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	TwoFactorEnabled  bool       `json:"twoFactorEnabled"`
	RecoveryCodesLeft int        `json:"recoveryCodesLeft"`
	LastLoginAt       *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}
