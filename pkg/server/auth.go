package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/spothinta/spothinta/pkg/log"
)

// authMiddleware validates the Authorization header on mutating API
// requests when an OIDC audience is configured. Read-only endpoints and
// deployments without an audience skip verification entirely.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))
		r = r.WithContext(ctx)

		if s.oidcVerifier == nil || r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, "missing auth header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).ErrorContext(ctx, "invalid auth header", slog.String("header", authHeader))
			writeJSONError(w, "invalid auth header", http.StatusBadRequest)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		idToken, err := s.oidcVerifier(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("subject", idToken.Subject)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
