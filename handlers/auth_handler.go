// handlers/auth_handler.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"assethub/config"
	"assethub/utils"
)

// Login authenticates an account and issues a JWT.
func Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.ParseJSON(r, &creds); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || !strings.Contains(creds.Email, "@") {
		utils.RespondWithError(w, http.StatusBadRequest, "Valid email required")
		return
	}
	if len(creds.Password) < 6 {
		utils.RespondWithError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	user, err := userStore.FindUserByEmail(r.Context(), creds.Email)
	if err != nil {
		logrus.Errorf("Login: user lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Authentication service unavailable")
		return
	}
	if user == nil || user.PasswordHash == "" {
		// Equalize timing with a throwaway comparison so a missing
		// account is indistinguishable from a wrong password.
		_ = utils.CheckPasswordHash("dummy_password", "$2a$10$dummyhashfordummycomparison")
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !utils.CheckPasswordHash(creds.Password, user.PasswordHash) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := utils.GenerateJWT(user.Email, user.Name, user.Role)
	if err != nil {
		logrus.Errorf("Login: JWT generation failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	logrus.Infof("Login: %s (%s)", user.Email, user.Role)

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresIn": config.JWTExpiration.String(),
		"user": map[string]interface{}{
			"email":            user.Email,
			"name":             user.Name,
			"role":             user.Role,
			"companyName":      user.CompanyName,
			"companyLogo":      user.CompanyLogo,
			"packageLimit":     user.PackageLimit,
			"currentEmployees": user.CurrentEmployees,
		},
	})
}

// ValidateToken reports whether a presented token is still good and who it
// belongs to.
func ValidateToken(w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "No authentication token")
		return
	}
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	claims, err := utils.ValidateJWT(tokenString)
	if err != nil || claims == nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	user, err := userStore.FindUserByEmail(r.Context(), claims.Email)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load account")
		return
	}
	if user == nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "User account not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user": map[string]interface{}{
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}
