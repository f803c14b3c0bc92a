// handlers/user_handler.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"assethub/models"
	"assethub/utils"
)

// defaultPackageLimit is the seat capacity a fresh HR account starts with
// until a payment raises it.
const defaultPackageLimit = 5

// UpsertUser creates or updates an account keyed by email. The route is
// public because it doubles as signup; HR accounts get a starter package
// limit on first insert.
func UpsertUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email        string `json:"email"`
		Name         string `json:"name"`
		Role         string `json:"role"`
		Password     string `json:"password,omitempty"`
		CompanyName  string `json:"companyName,omitempty"`
		CompanyLogo  string `json:"companyLogo,omitempty"`
		PackageLimit int    `json:"packageLimit,omitempty"`
		DateOfBirth  string `json:"dateOfBirth,omitempty"`
	}
	if err := utils.ParseJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.Email == "" || !strings.Contains(body.Email, "@") {
		utils.RespondWithError(w, http.StatusBadRequest, "Valid email required")
		return
	}
	if body.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if body.Role != models.RoleHR && body.Role != models.RoleEmployee {
		utils.RespondWithError(w, http.StatusBadRequest, "Role must be hr or employee")
		return
	}
	if body.Role == models.RoleHR && body.CompanyName == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Company name required for HR accounts")
		return
	}

	user := models.User{
		Email:       body.Email,
		Name:        body.Name,
		Role:        body.Role,
		CompanyName: body.CompanyName,
		CompanyLogo: body.CompanyLogo,
		DateOfBirth: body.DateOfBirth,
	}
	if body.Role == models.RoleHR {
		user.PackageLimit = body.PackageLimit
		if user.PackageLimit <= 0 {
			user.PackageLimit = defaultPackageLimit
		}
	}
	if body.Password != "" {
		if len(body.Password) < 6 {
			utils.RespondWithError(w, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}
		hash, err := utils.HashPassword(body.Password)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}
		user.PasswordHash = hash
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stored, err := userStore.Upsert(ctx, &user)
	if err != nil {
		logrus.Errorf("UpsertUser: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save user")
		return
	}

	logrus.Infof("Upserted user %s (%s)", stored.Email, stored.Role)
	utils.RespondWithJSON(w, http.StatusOK, stored)
}

// GetCurrentUser returns the authenticated account.
func GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	email, _, _, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := userStore.FindUserByEmail(r.Context(), email)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load account")
		return
	}
	if user == nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user)
}

// GetUserByEmail returns another account's public profile.
func GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	if email == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := userStore.FindUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	if user == nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"email":       user.Email,
		"name":        user.Name,
		"role":        user.Role,
		"companyName": user.CompanyName,
		"companyLogo": user.CompanyLogo,
	})
}
