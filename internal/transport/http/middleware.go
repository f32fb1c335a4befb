package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"certhub/internal/auth"
	"certhub/internal/domain"
	domainerrors "certhub/pkg/domain-errors"
)

// TokenVerifier validates bearer tokens for the auth middleware.
type TokenVerifier interface {
	VerifyToken(tokenString string) (auth.Claims, error)
}

type contextKeyClaims struct{}

// GetClaims retrieves the authenticated claims from the context. The zero
// Claims means the request never passed RequireAuth.
func GetClaims(ctx context.Context) auth.Claims {
	claims, _ := ctx.Value(contextKeyClaims{}).(auth.Claims)
	return claims
}

// RequireAuth rejects requests without a valid bearer token and stores the
// claims in the request context.
func RequireAuth(verifier TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				writeError(w, domainerrors.New(domainerrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			claims, err := verifier.VerifyToken(token)
			if err != nil {
				log.WarnContext(r.Context(), "rejected token", "error", err)
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), contextKeyClaims{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the admin role. Must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaims(r.Context()).Role != domain.RoleAdmin {
			writeError(w, domainerrors.New(domainerrors.CodeForbidden, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
