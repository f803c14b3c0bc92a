// handlers/assignment_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"assethub/models"
	"assethub/utils"
)

// ListAssignments returns the hand-off history: everything an HR account has
// granted, or everything an employee currently or previously held.
func ListAssignments(w http.ResponseWriter, r *http.Request) {
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

	assignments, err := assignmentStore.ListAssignments(ctx, hrEmail, employeeEmail, r.URL.Query().Get("status"))
	if err != nil {
		logrus.Errorf("ListAssignments: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch assignments")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": assignments,
		"count":       len(assignments),
	})
}
