package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const callerKey contextKey = "caller"

// Caller is the already-authenticated identity attached by the upstream
// identity service. This service never issues tokens; it only reads the
// claims the gateway signed.
type Caller struct {
	Subject string
	Role    string
}

type callerClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CallerContext validates the gateway-issued bearer token and attaches the
// caller to the request context. With an empty secret the middleware passes
// requests through anonymously, for deployments where the service sits
// behind a trusted gateway that already rejected unauthenticated traffic.
func CallerContext(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, `{"error":"invalid authorization format"}`, http.StatusUnauthorized)
				return
			}

			claims := &callerClaims{}
			_, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			caller := &Caller{Subject: claims.Subject, Role: claims.Role}
			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCaller returns the authenticated caller, or nil for anonymous requests.
func GetCaller(r *http.Request) *Caller {
	caller, ok := r.Context().Value(callerKey).(*Caller)
	if !ok {
		return nil
	}
	return caller
}
