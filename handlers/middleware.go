package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/camden-git/signabackend/services"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// ClaimsContextKey holds the verified *services.Claims of the caller.
	ClaimsContextKey ContextKey = "claims"
)

// TokenVerifier is the part of services.TokenService the middleware needs.
type TokenVerifier interface {
	VerifyToken(token string) (*services.Claims, bool)
}

// AuthMiddleware rejects requests without a valid bearer token. On success
// the claims and the caller identity are added to the request context.
func AuthMiddleware(tokens TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			WriteAPIError(w, http.StatusUnauthorized, services.KindAuthentication.String(), "authorization header format must be Bearer {token}")
			return
		}

		claims, ok := tokens.VerifyToken(tokenString)
		if !ok {
			WriteAPIError(w, http.StatusUnauthorized, services.KindAuthentication.String(), "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		ctx = services.WithIdentity(ctx, services.Identity{UserID: claims.UserID, Username: claims.Username})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken reads the Authorization header. Websocket upgrades may pass
// the token as the access_token query parameter since browsers cannot set
// headers on them.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if isWebsocketUpgrade(r) {
			if token := r.URL.Query().Get("access_token"); token != "" {
				return token, true
			}
		}
		return "", false
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func claimsFrom(r *http.Request) (*services.Claims, bool) {
	claims, ok := r.Context().Value(ClaimsContextKey).(*services.Claims)
	return claims, ok && claims != nil
}
