package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const staffKey contextKey = "staff"

// Middleware requires a Bearer staff token and puts the claims into the
// request context.
func Middleware(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.Parse(parts[1])
			if err != nil {
				http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), staffKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaffFrom extracts the authenticated staff claims, if any.
func StaffFrom(ctx context.Context) *StaffClaims {
	if claims, ok := ctx.Value(staffKey).(*StaffClaims); ok {
		return claims
	}
	return nil
}
