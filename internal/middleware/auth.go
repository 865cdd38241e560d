package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prepdesk/server/internal/auth"
)

type contextKey string

const (
	identityIDKey contextKey = "identity_id"
	phoneKey      contextKey = "phone_number"
)

// AuthMiddleware validates JWT access tokens and attaches the identity id
// to the request context
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				respondWithError(w, http.StatusUnauthorized, "missing token")
				return
			}

			claims, err := jwtService.VerifyToken(tokenString)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), identityIDKey, claims.IdentityID)
			ctx = context.WithValue(ctx, phoneKey, claims.PhoneNumber)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityID extracts the authenticated identity id from the context
func GetIdentityID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityIDKey).(string)
	return id, ok && id != ""
}

// GetPhoneNumber extracts the authenticated phone number from the context
func GetPhoneNumber(ctx context.Context) (string, bool) {
	phone, ok := ctx.Value(phoneKey).(string)
	return phone, ok
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
