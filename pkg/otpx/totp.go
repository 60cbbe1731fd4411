package otpx

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	// Period is the TOTP time step in seconds.
	Period = 30

	// CodeDigits is the length of a one-time code.
	CodeDigits = 6

	// DefaultWindow is the number of time steps accepted either side of
	// the current one. ±2 steps tolerates up to a minute of clock drift.
	DefaultWindow = 2
)

// Engine verifies time-based one-time codes against a shared secret.
//
// The zero value uses the default window and the system clock. Now is
// injectable so window edges can be tested deterministically.
type Engine struct {
	Window int
	Now    func() time.Time
}

func (e Engine) window() int {
	if e.Window <= 0 {
		return DefaultWindow
	}
	return e.Window
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Code computes the 6-digit code for a Base32 secret and a time-step
// counter, per RFC 4226 dynamic truncation over HMAC-SHA1.
func Code(secret string, counter uint64) (string, error) {
	return hotp.GenerateCodeCustom(secret, counter, hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// Counter returns the time-step counter for t.
func Counter(t time.Time) uint64 {
	return uint64(t.Unix() / Period)
}

// Verify reports whether code matches the secret at the current time,
// within the configured window. It fails closed: malformed secrets or
// codes verify as false, never as an error.
func (e Engine) Verify(secret, code string) bool {
	return e.VerifyAt(secret, code, e.now())
}

// VerifyAt is Verify against an explicit time.
func (e Engine) VerifyAt(secret, code string, t time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != CodeDigits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}

	counter := Counter(t)
	window := uint64(e.window())

	start := uint64(0)
	if counter > window {
		start = counter - window
	}

	// Check every counter in the window with a constant-time comparison,
	// without short-circuiting on the first match.
	matched := false
	for c := start; c <= counter+window; c++ {
		want, err := Code(secret, c)
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			matched = true
		}
	}
	return matched
}
