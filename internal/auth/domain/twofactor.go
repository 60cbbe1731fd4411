package domain

import "time"

// Challenge is a pending second-factor challenge, keyed by the challenge
// token's jti claim. Attempts caps verification tries per challenge.
type Challenge struct {
	ID        string // jti of the challenge token
	UserID    string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

// EnrollmentBundle is handed to the user exactly once, at enrollment.
// Nothing in it is active until the enrollment is confirmed.
type EnrollmentBundle struct {
	Secret        string   `json:"secret"`        // base32, for manual entry
	KeyURI        string   `json:"keyUri"`        // otpauth:// provisioning URI
	QRCode        string   `json:"qrCode"`        // base64 PNG data URI of KeyURI
	RecoveryCodes []string `json:"recoveryCodes"` // plaintext, shown only here
}

// RecoveryCodesBundle is returned when recovery codes are generated or
// rotated. The plaintext codes are only ever shown at this moment.
type RecoveryCodesBundle struct {
	RecoveryCodes []string `json:"recoveryCodes"`
}
