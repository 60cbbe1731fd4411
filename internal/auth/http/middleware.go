package http

import (
	"net/http"

	"github.com/civicstack/rms/pkg/httpx"
	"github.com/civicstack/rms/pkg/slogx"
)

// requireLiveSession rejects session tokens that verified cryptographically
// but have been revoked (logout, logout-all, 2FA disable).
func (r *Router) requireLiveSession() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			raw, ok := httpx.TokenFromCtx(ctx)
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized,
					"invalid_token", "missing bearer token")
				return
			}

			if err := r.TokenService.CheckSession(ctx, raw); err != nil {
				slogx.FromContext(ctx).Warn("revoked session token presented")
				httpx.WriteError(w, http.StatusUnauthorized,
					"invalid_token", "session has been revoked")
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}
