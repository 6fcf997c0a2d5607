package middleware

import (
	"net/http"
	"strings"

	"github.com/DevGruGold/xmrt-asset-tokenizer/utils"
)

// AdminAuthMiddleware verifies that the request carries a valid admin token.
// The faucet has a single operator account backed by env config, so there is
// no admin table to look up.
func AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
				Success: false,
				Message: "Unauthorized: No token provided",
			})
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		if err := utils.ValidateAdminToken(tokenString); err != nil {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
				Success: false,
				Message: "Unauthorized: Invalid token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
