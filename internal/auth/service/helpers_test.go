package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/civicstack/rms/internal/auth/domain"
	"github.com/civicstack/rms/internal/auth/store/drivers/sqlite"
	"github.com/civicstack/rms/pkg/cryptox"
	"github.com/civicstack/rms/pkg/jwtx"
	"github.com/civicstack/rms/pkg/otpx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "rms-auth-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// testEnv wires a full service stack over an in-memory sqlite store.
type testEnv struct {
	Store     *sqlite.Store
	Tokens    *TokenService
	Login     *LoginService
	Users     *UserService
	TwoFactor *TwoFactorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), "rms-test")
	require.NoError(t, err)

	tokens := &TokenService{Store: st, Codec: codec}
	return &testEnv{
		Store:     st,
		Tokens:    tokens,
		Login:     &LoginService{Store: st, Tokens: tokens},
		Users:     &UserService{Store: st},
		TwoFactor: &TwoFactorService{Store: st, Tokens: tokens, Issuer: "RMS System"},
	}
}

// registerUser creates an account through the real registration path.
func (e *testEnv) registerUser(t *testing.T, username, password string) domain.User {
	t.Helper()

	user, err := e.Users.Register(context.Background(), username, password)
	require.NoError(t, err)
	return user
}

// enableTwoFactor runs the full enrollment flow and returns the shared
// secret plus the recovery code batch.
func (e *testEnv) enableTwoFactor(t *testing.T, userID string) (secret string, recoveryCodes []string) {
	t.Helper()
	ctx := context.Background()

	bundle, err := e.TwoFactor.BeginEnrollment(ctx, userID)
	require.NoError(t, err)

	err = e.TwoFactor.ConfirmEnrollment(ctx, userID, totpNow(t, bundle.Secret))
	require.NoError(t, err)

	return bundle.Secret, bundle.RecoveryCodes
}

// totpNow computes the valid code for a secret at the current time.
func totpNow(t *testing.T, secret string) string {
	t.Helper()

	code, err := otpx.Code(secret, otpx.Counter(time.Now()))
	require.NoError(t, err)
	return code
}
