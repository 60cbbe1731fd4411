package cryptox_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/civicstack/rms/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := cryptox.HashPassword("Correct-Horse-9")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, cryptox.VerifyPassword("Correct-Horse-9", hash))
	require.ErrorIs(t,
		cryptox.VerifyPassword("wrong-password", hash),
		cryptox.ErrPasswordMismatch,
	)
}

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	a, err := cryptox.HashPassword("same-input")
	require.NoError(t, err)
	b, err := cryptox.HashPassword("same-input")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMangledHashes(t *testing.T) {
	require.Error(t, cryptox.VerifyPassword("pw", ""))
	require.Error(t, cryptox.VerifyPassword("pw", "$bcrypt$whatever"))
	require.Error(t, cryptox.VerifyPassword("pw", "$argon2id$v=19$m=1,t=1,p=1$!!!$!!!"))
}

func TestFingerprintToken(t *testing.T) {
	fp := cryptox.FingerprintToken("opaque-token")
	require.Len(t, fp, 43) // 32 bytes base64url, no padding
	require.Equal(t, fp, cryptox.FingerprintToken("opaque-token"))
	require.NotEqual(t, fp, cryptox.FingerprintToken("other-token"))
}
