package jwtx_test

import (
	"testing"
	"time"

	"github.com/civicstack/rms/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestNewHS256RejectsShortKeys(t *testing.T) {
	t.Parallel()

	_, err := jwtx.NewHS256([]byte("short"), "rms-auth")
	require.ErrorIs(t, err, jwtx.ErrKeyTooShort)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	hs, err := jwtx.NewHS256(testKey, "rms-auth")
	require.NoError(t, err)

	now := time.Now().UTC()
	token, err := hs.Sign(jwtx.NewSessionClaims("user-1", "rms-auth", now))
	require.NoError(t, err)

	claims, err := hs.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.TwoFactorVerified)
	require.False(t, claims.TwoFactorRequired)
	require.WithinDuration(t, now.Add(jwtx.SessionTokenTTL), claims.ExpiresAt.Time, time.Second)
}

func TestChallengeClaimsNeverCarryVerifiedFlag(t *testing.T) {
	t.Parallel()

	hs, err := jwtx.NewHS256(testKey, "rms-auth")
	require.NoError(t, err)

	token, err := hs.Sign(jwtx.NewChallengeClaims("user-1", "rms-auth", time.Now().UTC()))
	require.NoError(t, err)

	claims, err := hs.Verify(token)
	require.NoError(t, err)
	require.True(t, claims.TwoFactorRequired)
	require.False(t, claims.TwoFactorVerified)
	require.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	t.Parallel()

	hs, err := jwtx.NewHS256(testKey, "rms-auth")
	require.NoError(t, err)

	other, err := jwtx.NewHS256([]byte("ffffffffffffffffffffffffffffffff"), "rms-auth")
	require.NoError(t, err)

	token, err := other.Sign(jwtx.NewSessionClaims("user-1", "rms-auth", time.Now().UTC()))
	require.NoError(t, err)

	_, err = hs.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	hs, err := jwtx.NewHS256(testKey, "rms-auth")
	require.NoError(t, err)

	past := time.Now().UTC().Add(-8 * 24 * time.Hour)
	token, err := hs.Sign(jwtx.NewSessionClaims("user-1", "rms-auth", past))
	require.NoError(t, err)

	_, err = hs.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	hs, err := jwtx.NewHS256(testKey, "rms-auth")
	require.NoError(t, err)

	token, err := hs.Sign(jwtx.NewSessionClaims("user-1", "someone-else", time.Now().UTC()))
	require.NoError(t, err)

	_, err = hs.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestVerifyRejectsUnsignedAlg(t *testing.T) {
	t.Parallel()

	hs, err := jwtx.NewHS256(testKey, "rms-auth")
	require.NoError(t, err)

	// alg=none tokens must never verify.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone,
		jwtx.NewSessionClaims("user-1", "rms-auth", time.Now().UTC()))
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = hs.Verify(raw)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	hs, err := jwtx.NewHS256(testKey, "rms-auth")
	require.NoError(t, err)

	_, err = hs.Verify("not-a-token")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
