package otpx

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
)

const (
	// RecoveryCodeLength is the number of characters in a recovery code.
	RecoveryCodeLength = 6

	// RecoveryBatchSize is how many codes a fresh batch contains.
	RecoveryBatchSize = 10

	recoveryAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var ErrInvalidRecoveryCount = errors.New("otpx: recovery code count must be positive")

// GenerateRecoveryCodes returns count single-use recovery codes, each
// six uppercase alphanumeric characters from a secure random source.
// Codes within a batch are guaranteed unique so consuming one can never
// invalidate another.
func GenerateRecoveryCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidRecoveryCount
	}

	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for len(codes) < count {
		code, err := randomRecoveryCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue // vanishingly rare; redraw
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func randomRecoveryCode() (string, error) {
	buf := make([]byte, RecoveryCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(recoveryAlphabet))))
		if err != nil {
			return "", fmt.Errorf("otpx: failed to generate recovery code: %w", err)
		}
		buf[i] = recoveryAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// NormalizeRecoveryCode trims and uppercases user input so comparison is
// case-insensitive.
func NormalizeRecoveryCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ConsumeRecoveryCode matches submitted against codes and, on a match,
// returns a new slice with that entry removed exactly once. On a miss the
// original slice is returned unchanged, so a repeated submission of an
// already-consumed code is a no-op.
func ConsumeRecoveryCode(codes []string, submitted string) (matched bool, remaining []string) {
	submitted = NormalizeRecoveryCode(submitted)
	if len(submitted) != RecoveryCodeLength {
		return false, codes
	}

	idx := -1
	for i, code := range codes {
		if subtle.ConstantTimeCompare([]byte(code), []byte(submitted)) == 1 && idx < 0 {
			idx = i
		}
	}
	if idx < 0 {
		return false, codes
	}

	remaining = slices.Delete(slices.Clone(codes), idx, idx+1)
	return true, remaining
}
