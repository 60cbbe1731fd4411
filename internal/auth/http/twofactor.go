package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/civicstack/rms/internal/auth/service"
	"github.com/civicstack/rms/pkg/httpx"
	"github.com/civicstack/rms/pkg/slogx"
)

// TwoFactorHandler manages TOTP enrollment and recovery codes.
type TwoFactorHandler struct {
	TwoFactorService *service.TwoFactorService
}

// HandleEnroll handles POST /v1/auth/2fa/enroll
//
//	@Summary		Begin TOTP enrollment
//	@Description	Generates a pending TOTP secret and returns it with the otpauth URI and a QR code.
//	@Description	The account is not protected until the secret is confirmed with a valid code.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	domain.EnrollmentBundle	"Secret, provisioning URI and QR code (shown once)"
//	@Failure		400	{object}	httpx.ErrorBody			"Two-factor auth already enabled"
//	@Failure		401	{object}	httpx.ErrorBody			"Invalid or missing session token"
//	@Router			/v1/auth/2fa/enroll [post].
func (h *TwoFactorHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	bundle, err := h.TwoFactorService.BeginEnrollment(ctx, userID)
	if err != nil {
		writeTwoFactorError(w, log, userID, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, bundle)
}

// HandleConfirm handles POST /v1/auth/2fa/confirm
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Verifies a code against the pending secret and activates the second factor.
//	@Description	The secret and recovery codes were already delivered by the enroll step.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CodeRequest		true	"TOTP code"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	httpx.ErrorBody	"Invalid code or enrollment not started"
//	@Failure		401		{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Router			/v1/auth/2fa/confirm [post].
func (h *TwoFactorHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	var req CodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.TwoFactorService.ConfirmEnrollment(ctx, userID, req.Code); err != nil {
		writeTwoFactorError(w, log, userID, err)
		return
	}

	log.Info("two-factor auth enabled", "user_id", userID)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "two-factor auth enabled"})
}

// HandleDisable handles DELETE /v1/auth/2fa
//
//	@Summary		Disable the second factor
//	@Description	Verifies a TOTP code, wipes the secret and recovery codes, and revokes all sessions.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CodeRequest		true	"TOTP code for verification"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	httpx.ErrorBody	"Invalid code or two-factor auth not enabled"
//	@Failure		401		{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Router			/v1/auth/2fa [delete].
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	var req CodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.TwoFactorService.Disable(ctx, userID, req.Code); err != nil {
		writeTwoFactorError(w, log, userID, err)
		return
	}

	log.Info("two-factor auth disabled", "user_id", userID)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "two-factor auth disabled"})
}

// HandleRegenerateRecoveryCodes handles POST /v1/auth/2fa/recovery-codes
//
//	@Summary		Rotate recovery codes
//	@Description	Verifies a TOTP code and replaces the stored recovery code set. Old codes stop working.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CodeRequest					true	"TOTP code for verification"
//	@Success		200		{object}	domain.RecoveryCodesBundle	"New recovery codes (shown once)"
//	@Failure		400		{object}	httpx.ErrorBody				"Invalid code or two-factor auth not enabled"
//	@Failure		401		{object}	httpx.ErrorBody				"Invalid or missing session token"
//	@Router			/v1/auth/2fa/recovery-codes [post].
func (h *TwoFactorHandler) HandleRegenerateRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	var req CodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	codes, err := h.TwoFactorService.RegenerateRecoveryCodes(ctx, userID, req.Code)
	if err != nil {
		writeTwoFactorError(w, log, userID, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, codes)
}

func writeTwoFactorError(w http.ResponseWriter, log *slog.Logger, userID string, err error) {
	switch {
	case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
		httpx.WriteError(w, http.StatusBadRequest,
			"already_enabled", "Two-factor auth is already enabled")
	case errors.Is(err, service.ErrTwoFactorNotEnabled):
		httpx.WriteError(w, http.StatusBadRequest,
			"not_enabled", "Two-factor auth is not enabled")
	case errors.Is(err, service.ErrNotEnrolled):
		httpx.WriteError(w, http.StatusBadRequest,
			"not_enrolled", "Start enrollment before confirming")
	case errors.Is(err, service.ErrInvalidCode):
		log.Warn("invalid TOTP code", "user_id", userID)
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_code", "Verification code is not valid")
	default:
		log.Error("two-factor request failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Internal server error")
	}
}
