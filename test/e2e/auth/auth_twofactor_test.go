package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTwoFactorEnrollmentAndLogin tests the complete enrollment and
// challenge-based login flow.
func TestTwoFactorEnrollmentAndLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "mfauser", "correct horse battery")

	session := client.withToken(login(t, client, "mfauser", "correct horse battery"))
	secret, recoveryCodes := enrollTwoFactor(t, session)
	t.Logf("TOTP enrollment completed, received %d recovery codes", len(recoveryCodes))

	// Login now returns a challenge instead of a session
	challengeToken := loginExpectChallenge(t, client, "mfauser", "correct horse battery")

	// Challenge tokens must not open authenticated endpoints
	status, _ := client.withToken(challengeToken).do(t, http.MethodGet, "/v1/auth/profile", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status, "challenge token should not grant access")

	// Redeem with a TOTP code
	token := verifyChallenge(t, client, challengeToken, generateTOTP(t, secret))
	verified := client.withToken(token)

	var profile profileResponse
	status, _ = verified.do(t, http.MethodGet, "/v1/auth/profile", nil, &profile)
	require.Equal(t, http.StatusOK, status)
	require.True(t, profile.TwoFactorEnabled)
	require.Equal(t, 10, profile.RecoveryCodesLeft)

	// A challenge is single use
	status, _ = client.do(t, http.MethodPost, "/v1/auth/verify-2fa",
		map[string]string{"challengeToken": challengeToken, "code": generateTOTP(t, secret)}, nil)
	require.Equal(t, http.StatusUnauthorized, status, "challenge should be single use")
}

// TestRecoveryCodeLogin verifies recovery codes redeem a challenge exactly once.
func TestRecoveryCodeLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "recoveryuser", "correct horse battery")

	session := client.withToken(login(t, client, "recoveryuser", "correct horse battery"))
	_, recoveryCodes := enrollTwoFactor(t, session)
	recoveryCode := recoveryCodes[0]

	// Redeem a challenge with a recovery code
	challengeToken := loginExpectChallenge(t, client, "recoveryuser", "correct horse battery")

	var newSession sessionResponse
	status, raw := client.do(t, http.MethodPost, "/v1/auth/verify-recovery",
		map[string]string{"challengeToken": challengeToken, "code": recoveryCode}, &newSession)
	require.Equal(t, http.StatusOK, status, "recovery verify should succeed: %s", raw)
	require.NotEmpty(t, newSession.Token)

	// The code is consumed
	var profile profileResponse
	verified := client.withToken(newSession.Token)
	status, _ = verified.do(t, http.MethodGet, "/v1/auth/profile", nil, &profile)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 9, profile.RecoveryCodesLeft)

	// Reusing the same code on a fresh challenge fails
	challengeToken2 := loginExpectChallenge(t, client, "recoveryuser", "correct horse battery")
	status, _ = client.do(t, http.MethodPost, "/v1/auth/verify-recovery",
		map[string]string{"challengeToken": challengeToken2, "code": recoveryCode}, nil)
	require.Equal(t, http.StatusBadRequest, status, "recovery code reuse should be rejected")

	t.Logf("Recovery code reuse correctly rejected")
}

// TestChallengeAttemptLimiting tests that challenges are invalidated after 5
// failed attempts. This prevents brute force attacks on TOTP codes.
func TestChallengeAttemptLimiting(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "attemptuser", "correct horse battery")

	session := client.withToken(login(t, client, "attemptuser", "correct horse battery"))
	secret, _ := enrollTwoFactor(t, session)

	challengeToken := loginExpectChallenge(t, client, "attemptuser", "correct horse battery")

	// Make 5 failed attempts with invalid TOTP codes
	for i := 1; i <= 5; i++ {
		status, _ := client.do(t, http.MethodPost, "/v1/auth/verify-2fa",
			map[string]string{"challengeToken": challengeToken, "code": "000000"}, nil)

		if i < 5 {
			require.Equal(t, http.StatusBadRequest, status, "attempt %d", i)
		} else {
			require.Equal(t, http.StatusTooManyRequests, status,
				"attempt %d should invalidate the challenge", i)
		}
	}

	// Even a valid code is rejected once the challenge is gone
	status, _ := client.do(t, http.MethodPost, "/v1/auth/verify-2fa",
		map[string]string{"challengeToken": challengeToken, "code": generateTOTP(t, secret)}, nil)
	require.Equal(t, http.StatusUnauthorized, status,
		"valid code should be rejected after challenge invalidation")

	// A fresh challenge still works
	challengeToken2 := loginExpectChallenge(t, client, "attemptuser", "correct horse battery")
	verifyChallenge(t, client, challengeToken2, generateTOTP(t, secret))

	t.Logf("Fresh challenge works after previous challenge was invalidated")
}

// TestRegenerateRecoveryCodes tests rotating the recovery code set.
func TestRegenerateRecoveryCodes(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "rotateuser", "correct horse battery")

	session := client.withToken(login(t, client, "rotateuser", "correct horse battery"))
	secret, oldCodes := enrollTwoFactor(t, session)
	oldCode := oldCodes[0]

	// Re-login through the challenge to get a verified session
	challengeToken := loginExpectChallenge(t, client, "rotateuser", "correct horse battery")
	verified := client.withToken(verifyChallenge(t, client, challengeToken, generateTOTP(t, secret)))

	var newCodes recoveryCodesResponse
	status, raw := verified.do(t, http.MethodPost, "/v1/auth/2fa/recovery-codes",
		map[string]string{"code": generateTOTP(t, secret)}, &newCodes)
	require.Equal(t, http.StatusOK, status, "rotation should succeed: %s", raw)
	require.Len(t, newCodes.RecoveryCodes, 10, "should receive 10 new recovery codes")
	require.NotContains(t, newCodes.RecoveryCodes, oldCode)

	// Old code no longer works
	challengeToken2 := loginExpectChallenge(t, client, "rotateuser", "correct horse battery")
	status, _ = client.do(t, http.MethodPost, "/v1/auth/verify-recovery",
		map[string]string{"challengeToken": challengeToken2, "code": oldCode}, nil)
	require.Equal(t, http.StatusBadRequest, status, "old recovery code should not work")

	// New code works
	challengeToken3 := loginExpectChallenge(t, client, "rotateuser", "correct horse battery")
	var fresh sessionResponse
	status, _ = client.do(t, http.MethodPost, "/v1/auth/verify-recovery",
		map[string]string{"challengeToken": challengeToken3, "code": newCodes.RecoveryCodes[0]}, &fresh)
	require.Equal(t, http.StatusOK, status, "new recovery code should work")
}

// TestDisableTwoFactor tests removing the second factor from an account.
func TestDisableTwoFactor(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "disableuser", "correct horse battery")

	session := client.withToken(login(t, client, "disableuser", "correct horse battery"))
	secret, _ := enrollTwoFactor(t, session)

	challengeToken := loginExpectChallenge(t, client, "disableuser", "correct horse battery")
	verified := client.withToken(verifyChallenge(t, client, challengeToken, generateTOTP(t, secret)))

	// Wrong code is rejected
	status, _ := verified.do(t, http.MethodDelete, "/v1/auth/2fa",
		map[string]string{"code": "000000"}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Correct code disables 2FA and revokes the session
	status, _ = verified.do(t, http.MethodDelete, "/v1/auth/2fa",
		map[string]string{"code": generateTOTP(t, secret)}, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = verified.do(t, http.MethodGet, "/v1/auth/profile", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status, "disabling 2FA should revoke sessions")

	// Login goes straight to a session again
	token := login(t, client, "disableuser", "correct horse battery")
	var profile profileResponse
	status, _ = client.withToken(token).do(t, http.MethodGet, "/v1/auth/profile", nil, &profile)
	require.Equal(t, http.StatusOK, status)
	require.False(t, profile.TwoFactorEnabled)

	t.Logf("Login works without a challenge after 2FA removal")
}

// TestEnrollmentRequiresConfirmation verifies enrollment only takes effect
// once a valid code confirms the pending secret.
func TestEnrollmentRequiresConfirmation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, "pendinguser", "correct horse battery")

	session := client.withToken(login(t, client, "pendinguser", "correct horse battery"))

	var enrollment enrollmentResponse
	status, _ := session.do(t, http.MethodPost, "/v1/auth/2fa/enroll", nil, &enrollment)
	require.Equal(t, http.StatusOK, status)

	// Wrong confirmation code leaves the account unprotected
	status, _ = session.do(t, http.MethodPost, "/v1/auth/2fa/confirm",
		map[string]string{"code": "000000"}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Login still issues a session directly
	token := login(t, client, "pendinguser", "correct horse battery")
	require.NotEmpty(t, token)

	// Confirming without enrolling first is rejected
	fresh := newAPIClient(baseURL)
	registerUser(t, fresh, "neverenrolled", "correct horse battery")
	freshSession := fresh.withToken(login(t, fresh, "neverenrolled", "correct horse battery"))

	status, _ = freshSession.do(t, http.MethodPost, "/v1/auth/2fa/confirm",
		map[string]string{"code": "123456"}, nil)
	require.Equal(t, http.StatusBadRequest, status, "confirm without enroll should be rejected")
}
