package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"

	"court-manager/backend/internal/authctx"
)

type AuthUser struct {
	UID         string
	Email       string
	DisplayName string
	Claims      map[string]any
}

// WithAuth verifies the Firebase ID token on every request and stores
// the caller's identity in the context.
func WithAuth(authClient *auth.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
				http.Error(w, "missing Authorization: Bearer <token>", http.StatusUnauthorized)
				return
			}
			idToken := strings.TrimSpace(h[len("Bearer "):])

			tok, err := authClient.VerifyIDToken(r.Context(), idToken)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := authctx.WithUID(r.Context(), tok.UID)
			ctx = authctx.WithClaims(ctx, tok.Claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthUser assembles the caller's identity from the context values
// WithAuth stored.
func GetAuthUser(ctx context.Context) (*AuthUser, bool) {
	uid, ok := authctx.UID(ctx)
	if !ok {
		return nil, false
	}
	claims, _ := authctx.Claims(ctx)

	au := &AuthUser{UID: uid, Claims: claims}
	if v, ok := claims["email"].(string); ok {
		au.Email = v
	}
	if v, ok := claims["name"].(string); ok {
		au.DisplayName = v
	}
	return au, true
}

// RequireAdmin guards the court, template, and block management routes.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authctx.UID(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		claims, _ := authctx.Claims(r.Context())
		if !IsAdmin(claims) {
			http.Error(w, "admin only", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsAdmin checks if the user has admin role in their claims
func IsAdmin(claims map[string]any) bool {
	if claims == nil {
		return false
	}
	if admin, ok := claims["admin"].(bool); ok && admin {
		return true
	}
	if role, ok := claims["role"].(string); ok && role == "admin" {
		return true
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if str, ok := r.(string); ok && str == "admin" {
				return true
			}
		}
	}
	return false
}
