package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRegisterAndLogin covers the happy path for an account without a
// second factor: register, log in, read the profile, log out.
func TestRegisterAndLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "alice", "correct horse battery")

	token := login(t, client, "alice", "correct horse battery")
	session := client.withToken(token)

	var profile profileResponse
	status, raw := session.do(t, http.MethodGet, "/v1/auth/profile", nil, &profile)

	require.Equal(t, http.StatusOK, status, "profile should be readable: %s", raw)
	require.Equal(t, "alice", profile.Username)
	require.False(t, profile.TwoFactorEnabled)
	require.Zero(t, profile.RecoveryCodesLeft)

	// Log out and confirm the token is dead
	status, _ = session.do(t, http.MethodPost, "/v1/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = session.do(t, http.MethodGet, "/v1/auth/profile", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status, "revoked token should be rejected")
}

// TestRegisterValidation exercises username and password validation.
func TestRegisterValidation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	// Short password
	status, _ := client.do(t, http.MethodPost, "/v1/auth/register",
		map[string]string{"username": "bob", "password": "short"}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Bad username
	status, _ = client.do(t, http.MethodPost, "/v1/auth/register",
		map[string]string{"username": "!!bad!!", "password": "good enough password"}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Duplicate username (case-insensitive)
	registerUser(t, client, "carol", "good enough password")
	status, _ = client.do(t, http.MethodPost, "/v1/auth/register",
		map[string]string{"username": "Carol", "password": "good enough password"}, nil)
	require.Equal(t, http.StatusConflict, status)
}

// TestInvalidCredentials verifies bad logins are rejected and report the
// remaining attempt budget.
func TestInvalidCredentials(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "dave", "correct horse battery")

	status, raw := client.do(t, http.MethodPost, "/v1/auth/login",
		map[string]string{"username": "dave", "password": "wrong password"}, nil)

	require.Equal(t, http.StatusUnauthorized, status)
	require.Contains(t, string(raw), "remainingAttempts")

	// Unknown usernames get the same error shape, minus the counter
	status, _ = client.do(t, http.MethodPost, "/v1/auth/login",
		map[string]string{"username": "nobody", "password": "wrong password"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

// TestAccountLockout verifies the account locks after repeated password
// failures and that even the correct password is rejected while locked.
func TestAccountLockout(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "erin", "correct horse battery")

	// Burn through the failed login budget. The locking attempt itself
	// still answers like any other mismatch.
	for i := 1; i <= 5; i++ {
		status, raw := client.do(t, http.MethodPost, "/v1/auth/login",
			map[string]string{"username": "erin", "password": "wrong password"}, nil)
		require.Equal(t, http.StatusUnauthorized, status, "attempt %d", i)
		require.Contains(t, string(raw), "remainingAttempts", "attempt %d", i)
	}

	// From the next attempt on the account reports locked
	status, _ := client.do(t, http.MethodPost, "/v1/auth/login",
		map[string]string{"username": "erin", "password": "wrong password"}, nil)
	require.Equal(t, http.StatusLocked, status)

	// Correct password is still rejected while locked
	status, _ = client.do(t, http.MethodPost, "/v1/auth/login",
		map[string]string{"username": "erin", "password": "correct horse battery"}, nil)
	require.Equal(t, http.StatusLocked, status)

	t.Logf("Account correctly locked after 5 failed attempts")
}

// TestLogoutAll verifies logout-all kills every outstanding session.
func TestLogoutAll(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "frank", "correct horse battery")

	first := client.withToken(login(t, client, "frank", "correct horse battery"))
	second := client.withToken(login(t, client, "frank", "correct horse battery"))

	status, _ := first.do(t, http.MethodPost, "/v1/auth/logout-all", nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = first.do(t, http.MethodGet, "/v1/auth/profile", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = second.do(t, http.MethodGet, "/v1/auth/profile", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status, "all sessions should be revoked")
}
