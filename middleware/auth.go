package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v4"

	"github.com/pwest1/recipe-meal-planner/config"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the verified caller, produced once per request by the auth
// middleware. Subject is the token's sub claim; Email and Name are
// best-effort hints used for profile provisioning.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// IdentityFrom returns the verified identity stored by RequireAuth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityContextKey).(Identity)
	return ident, ok
}

// RequireAuth verifies the Authorization bearer token: RS256 only, signed
// with the configured public key, issued by the configured issuer for the
// configured audience. On success the Identity is stored in the request
// context; ownership checks downstream use it, never a client-supplied id.
func RequireAuth(cfg config.AuthConfig) (func(http.Handler) http.Handler, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse auth public key: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Authorization header is missing")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "Invalid Authorization format")
				return
			}

			ident, err := verifyToken(parts[1], key, cfg)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

func verifyToken(tokenString string, key *rsa.PublicKey, cfg config.AuthConfig) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("invalid token claims")
	}
	if !claims.VerifyIssuer(cfg.Issuer, true) {
		return Identity{}, fmt.Errorf("issuer mismatch")
	}
	if !claims.VerifyAudience(cfg.Audience, true) {
		return Identity{}, fmt.Errorf("audience mismatch")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("missing sub claim")
	}

	ident := Identity{Subject: sub}
	ident.Email, _ = claims["email"].(string)
	if name, ok := claims["name"].(string); ok {
		ident.Name = name
	} else if nickname, ok := claims["nickname"].(string); ok {
		ident.Name = nickname
	}

	return ident, nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
