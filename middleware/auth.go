package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"assethub/store"
	"assethub/utils"
)

var users *store.Users

// Init wires the middleware to the account directory. Must run before the
// router starts serving authenticated routes.
func Init(db *mongo.Database) {
	users = store.NewUsers(db)
}

// AuthMiddleware validates the Bearer token and loads the account it names.
// The stored role wins over the token's role claim, so demoting an account
// takes effect on the next request, not the next login.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrades authenticate inside the handler
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ValidateJWT(tokenString)
		if err != nil || claims == nil {
			logrus.Debugf("AuthMiddleware: JWT validation failed: %v", err)
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := users.FindUserByEmail(r.Context(), claims.Email)
		if err != nil {
			logrus.Errorf("AuthMiddleware: user lookup failed for %s: %v", claims.Email, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load account")
			return
		}
		if user == nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), "email", user.Email)
		ctx = context.WithValue(ctx, "name", user.Name)
		ctx = context.WithValue(ctx, "role", user.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
