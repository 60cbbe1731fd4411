package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/civicstack/rms/internal/auth/service"
	"github.com/civicstack/rms/internal/auth/store"
	"github.com/civicstack/rms/pkg/httpx"
	"github.com/civicstack/rms/pkg/jwtx"
	"github.com/civicstack/rms/pkg/slogx"

	_ "github.com/civicstack/rms/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store            store.Store
	TokenService     *service.TokenService
	LoginService     *service.LoginService
	UserService      *service.UserService
	TwoFactorService *service.TwoFactorService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerLogin()
	r.registerTwoFactor()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			RMS Authentication Service API
//	@version		0.1.0
//	@description	Authentication service with TOTP two-factor login, single-use recovery codes and revocable session tokens.
//	@description
//	@description				Session and challenge tokens are HS256-signed JWTs. Challenge tokens only open the
//	@description				second-factor verification endpoints and never grant resource access.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// session is the middleware stack for endpoints that require a full,
// unrevoked session token.
func (r *Router) session(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier), // verify JWT (iss/exp/signature)
		httpx.RequireTwoFactorVerified(),  // reject challenge tokens
		r.requireLiveSession(),            // reject revoked tokens
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerAccounts() {
	h := &AccountHandler{UserService: r.UserService}

	// POST /register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /profile - authenticated read, lenient limit
	r.Mux.Handle("GET /v1/auth/profile",
		r.session(http.HandlerFunc(h.HandleProfile), httpx.LenientLimit))
}

func (r *Router) registerLogin() {
	h := &LoginHandler{LoginService: r.LoginService}

	// POST /login - strict rate limit by IP (authentication attempts)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Second-factor verification - strict limits; the challenge row also
	// caps attempts server-side.
	r.Mux.Handle("POST /v1/auth/verify-2fa",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyTOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/verify-recovery",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyRecovery),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Logout endpoints require a live session
	r.Mux.Handle("POST /v1/auth/logout",
		r.session(http.HandlerFunc(h.HandleLogout), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/auth/logout-all",
		r.session(http.HandlerFunc(h.HandleLogoutAll), httpx.ModerateLimit))
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{TwoFactorService: r.TwoFactorService}

	r.Mux.Handle("POST /v1/auth/2fa/enroll",
		r.session(http.HandlerFunc(h.HandleEnroll), httpx.ModerateLimit))

	// Confirm gets the strict limit to slow TOTP brute force
	r.Mux.Handle("POST /v1/auth/2fa/confirm",
		r.session(http.HandlerFunc(h.HandleConfirm), httpx.StrictLimit))

	r.Mux.Handle("DELETE /v1/auth/2fa",
		r.session(http.HandlerFunc(h.HandleDisable), httpx.ModerateLimit))

	r.Mux.Handle("POST /v1/auth/2fa/recovery-codes",
		r.session(http.HandlerFunc(h.HandleRegenerateRecoveryCodes), httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
