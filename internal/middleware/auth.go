package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/radif/gallery/internal/identity"
	"github.com/radif/gallery/internal/response"
)

// AdminRole is the value of the "role" claim that grants administrator rights.
const AdminRole = "admin"

// RequireAuth returns middleware that validates a Bearer JWT and injects
// the caller identity into the request context. Tokens are minted by the
// identity provider: "sub" is the caller id and "role" marks administrators.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				response.Unauthorized(w, "invalid token claims")
				return
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				response.Unauthorized(w, "token has no subject")
				return
			}
			role, _ := claims["role"].(string)

			ctx := identity.WithCaller(r.Context(), identity.Caller{ID: sub, Admin: role == AdminRole})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Caller returns the identity injected by RequireAuth, writing a 401 and
// reporting false when there is none.
func Caller(w http.ResponseWriter, r *http.Request) (identity.Caller, bool) {
	c, ok := identity.FromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
	}
	return c, ok
}
