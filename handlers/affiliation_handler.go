// handlers/affiliation_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"assethub/models"
	"assethub/utils"
)

// ListAffiliations returns the membership mapping from the caller's side: an
// HR account sees its employees, an employee sees their companies.
func ListAffiliations(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	hrEmail, employeeEmail := "", ""
	if role == models.RoleHR {
		hrEmail = email
	} else {
		employeeEmail = email
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	affiliations, err := affiliationStore.ListAffiliations(ctx, hrEmail, employeeEmail)
	if err != nil {
		logrus.Errorf("ListAffiliations: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch affiliations")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"affiliations": affiliations,
		"count":        len(affiliations),
	})
}

// RemoveAffiliation ends an employee's membership and frees their seat. Asset
// history is untouched; this is offboarding, not reclamation.
func RemoveAffiliation(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if role != models.RoleHR {
		utils.RespondWithError(w, http.StatusForbidden, "Only HR accounts remove employees")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid affiliation ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	aff, err := affiliationStore.FindAffiliationByID(ctx, id)
	if err != nil {
		logrus.Errorf("RemoveAffiliation: lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load affiliation")
		return
	}
	if aff == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Affiliation not found")
		return
	}
	if aff.HREmail != email {
		utils.RespondWithError(w, http.StatusForbidden, "Affiliation belongs to another company")
		return
	}

	outcome, err := orchestrator.RemoveAffiliation(ctx, id)
	if err != nil {
		respondOpError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, outcome)
}
