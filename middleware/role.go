package middleware

import (
	"net/http"

	"github.com/MrEthical07/goAuthClient/jwt"
)

// RequireRole wraps [Guard] and answers 403 unless the token's role is one of roles.
func RequireRole(verifier Verifier, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	guard := Guard(verifier)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if !roleAllowed(claims, allowed) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func roleAllowed(claims *jwt.AccessClaims, allowed map[string]struct{}) bool {
	if claims == nil {
		return false
	}
	_, ok := allowed[claims.Role]
	return ok
}
