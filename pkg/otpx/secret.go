package otpx

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// SecretSizeBytes is the raw secret length. 160 bits per the RFC 4226
// recommendation, which is also what authenticator apps expect.
const SecretSizeBytes = 20

var (
	ErrInvalidLabel  = errors.New("otpx: invalid account label")
	ErrInvalidSecret = errors.New("otpx: invalid base32 secret")
)

// b32 is the standard Base32 alphabet without padding. Provisioning URIs
// conventionally omit padding and some authenticator apps choke on it.
var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// secretPattern matches an unpadded Base32 string (uppercase A-Z, digits 2-7).
var secretPattern = regexp.MustCompile(`^[A-Z2-7]+$`)

// GenerateSecret returns a fresh shared secret as an uppercase Base32
// string. The secret is not active until enrollment is confirmed.
func GenerateSecret() (string, error) {
	raw := make([]byte, SecretSizeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("otpx: failed to generate secret: %w", err)
	}
	return EncodeSecret(raw), nil
}

// EncodeSecret encodes raw secret bytes as unpadded uppercase Base32.
func EncodeSecret(raw []byte) string {
	return b32.EncodeToString(raw)
}

// DecodeSecret decodes a Base32 secret back into raw bytes. Input is
// normalized (trimmed, uppercased) before decoding.
func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if !secretPattern.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	raw, err := b32.DecodeString(secret)
	if err != nil {
		return nil, ErrInvalidSecret
	}
	return raw, nil
}

// KeyURI builds the otpauth provisioning URI scanned during enrollment:
//
//	otpauth://totp/{issuer} ({account})?secret={secret}
//
// The label is percent-encoded so it survives QR encoding and URL parsing
// in authenticator apps.
func KeyURI(issuer, account, secret string) (string, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return "", ErrInvalidLabel
	}

	label := fmt.Sprintf("%s (%s)", issuer, account)
	return "otpauth://totp/" + url.PathEscape(label) + "?secret=" + secret, nil
}
