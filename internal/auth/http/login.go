package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/civicstack/rms/internal/auth/domain"
	"github.com/civicstack/rms/internal/auth/service"
	"github.com/civicstack/rms/pkg/httpx"
	"github.com/civicstack/rms/pkg/slogx"
)

// LoginHandler drives the login state machine over HTTP.
type LoginHandler struct {
	LoginService *service.LoginService
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in with username and password
//	@Description	Runs the credential step. Accounts without a second factor receive a session token;
//	@Description	2FA-enabled accounts receive a short-lived challenge token to redeem at the verify endpoints.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest				true	"Credentials"
//	@Success		200		{object}	domain.SessionResponse		"Session token (no second factor)"
//	@Success		202		{object}	domain.ChallengeResponse	"Second factor required"
//	@Failure		401		{object}	httpx.ErrorBody				"Invalid credentials"
//	@Failure		423		{object}	httpx.ErrorBody				"Account locked"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	result, err := h.LoginService.SubmitCredentials(ctx, req.Username, req.Password)
	if err != nil {
		writeAuthError(w, log, err)
		return
	}

	if result.Challenge != nil {
		httpx.WriteJSON(w, http.StatusAccepted, result.Challenge)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result.Session)
}

// HandleVerifyTOTP handles POST /v1/auth/verify-2fa
//
//	@Summary		Redeem a challenge with a TOTP code
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyRequest			true	"Challenge token and code"
//	@Success		200		{object}	domain.SessionResponse	"Session token"
//	@Failure		400		{object}	httpx.ErrorBody			"Invalid code"
//	@Failure		401		{object}	httpx.ErrorBody			"Invalid or expired challenge"
//	@Failure		429		{object}	httpx.ErrorBody			"Too many attempts"
//	@Router			/v1/auth/verify-2fa [post].
func (h *LoginHandler) HandleVerifyTOTP(w http.ResponseWriter, r *http.Request) {
	h.handleVerify(w, r, h.LoginService.SubmitTOTP)
}

// HandleVerifyRecovery handles POST /v1/auth/verify-recovery
//
//	@Summary		Redeem a challenge with a single-use recovery code
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyRequest			true	"Challenge token and recovery code"
//	@Success		200		{object}	domain.SessionResponse	"Session token"
//	@Failure		400		{object}	httpx.ErrorBody			"Invalid recovery code"
//	@Failure		401		{object}	httpx.ErrorBody			"Invalid or expired challenge"
//	@Failure		429		{object}	httpx.ErrorBody			"Too many attempts"
//	@Router			/v1/auth/verify-recovery [post].
func (h *LoginHandler) HandleVerifyRecovery(w http.ResponseWriter, r *http.Request) {
	h.handleVerify(w, r, h.LoginService.SubmitRecoveryCode)
}

func (h *LoginHandler) handleVerify(
	w http.ResponseWriter,
	r *http.Request,
	verify func(ctx context.Context, challengeToken, code string) (domain.SessionResponse, error),
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req VerifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	session, err := verify(ctx, req.ChallengeToken, req.Code)
	if err != nil {
		writeAuthError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, session)
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Revoke the current session token
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	MessageResponse
//	@Failure		401	{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Router			/v1/auth/logout [post].
func (h *LoginHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw, ok := httpx.TokenFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	if err := h.LoginService.Logout(ctx, raw); err != nil {
		log.Error("failed to revoke session", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to log out")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HandleLogoutAll handles POST /v1/auth/logout-all
//
//	@Summary		Revoke every session for the current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	MessageResponse
//	@Failure		401	{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Router			/v1/auth/logout-all [post].
func (h *LoginHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	if err := h.LoginService.LogoutAll(ctx, userID); err != nil {
		log.Error("failed to revoke sessions", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to log out")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "logged out everywhere"})
}

// writeAuthError maps login state machine errors onto HTTP responses.
// Unknown errors are logged and masked as 500s.
func writeAuthError(w http.ResponseWriter, log *slog.Logger, err error) {
	var attemptsErr *service.InvalidCredentialsError

	switch {
	case errors.As(err, &attemptsErr):
		log.Warn("invalid credentials", "remaining_attempts", attemptsErr.Remaining)
		httpx.WriteJSON(w, http.StatusUnauthorized, struct {
			httpx.ErrorBody
			RemainingAttempts int `json:"remainingAttempts"`
		}{
			ErrorBody: httpx.ErrorBody{
				Error:            "invalid_credentials",
				ErrorDescription: "Invalid username or password",
			},
			RemainingAttempts: attemptsErr.Remaining,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Invalid username or password")
	case errors.Is(err, service.ErrAccountLocked):
		httpx.WriteError(w, http.StatusLocked,
			"account_locked", "Account temporarily locked after too many failed attempts")
	case errors.Is(err, service.ErrChallengeInvalid):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_challenge", "Challenge token is invalid or expired")
	case errors.Is(err, service.ErrTooManyAttempts):
		httpx.WriteError(w, http.StatusTooManyRequests,
			"too_many_attempts", "Too many verification attempts; log in again")
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_code", "Verification code is not valid")
	default:
		log.Error("login request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Internal server error")
	}
}
