package http

import (
	"errors"
	"net/http"

	"github.com/civicstack/rms/internal/auth/service"
	"github.com/civicstack/rms/pkg/httpx"
	"github.com/civicstack/rms/pkg/slogx"
)

// AccountHandler covers registration and profile reads.
type AccountHandler struct {
	UserService *service.UserService
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register a new account
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Username and password"
//	@Success		201		{object}	RegisterResponse
//	@Failure		400		{object}	httpx.ErrorBody	"Invalid username or weak password"
//	@Failure		409		{object}	httpx.ErrorBody	"Username already taken"
//	@Router			/v1/auth/register [post].
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	user, err := h.UserService.Register(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsername):
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_username", "Usernames are 3-64 characters: letters, digits, . _ @ -")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest,
				"weak_password", "Passwords must be 8-128 characters")
		case errors.Is(err, service.ErrUsernameTaken):
			httpx.WriteError(w, http.StatusConflict,
				"username_taken", "That username is already in use")
		default:
			log.Error("failed to register user", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "Internal server error")
		}
		return
	}

	log.Info("user registered", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, RegisterResponse{
		ID:       user.ID,
		Username: user.Username,
	})
}

// HandleProfile handles GET /v1/auth/profile
//
//	@Summary		Current user's profile
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	domain.Profile
//	@Failure		401	{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Router			/v1/auth/profile [get].
func (h *AccountHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	profile, err := h.UserService.Profile(ctx, userID)
	if err != nil {
		log.Error("failed to load profile", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, profile)
}
