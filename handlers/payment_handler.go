// handlers/payment_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"assethub/models"
	"assethub/utils"
)

// CreatePayment records a completed package upgrade and raises the account's
// seat capacity. The charge itself happens upstream; this endpoint only books
// the result.
func CreatePayment(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if role != models.RoleHR {
		utils.RespondWithError(w, http.StatusForbidden, "Only HR accounts purchase packages")
		return
	}

	var body struct {
		Amount          float64 `json:"amount"`
		NewPackageLimit int     `json:"newPackageLimit"`
		TransactionID   string  `json:"transactionId,omitempty"`
	}
	if err := utils.ParseJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if body.Amount <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}
	if body.NewPackageLimit <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "New package limit must be positive")
		return
	}

	payment := models.Payment{
		HREmail:         email,
		Amount:          body.Amount,
		NewPackageLimit: body.NewPackageLimit,
		TransactionID:   body.TransactionID,
		Date:            time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := paymentStore.InsertPayment(ctx, &payment); err != nil {
		logrus.Errorf("CreatePayment: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record payment")
		return
	}

	raised, err := userStore.RaisePackageLimit(ctx, email, body.NewPackageLimit)
	if err != nil {
		logrus.Errorf("CreatePayment: raising limit failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Payment recorded but limit not raised")
		return
	}
	if raised {
		logrus.Infof("Payment %s: %s upgraded to %d seats", payment.TransactionID, email, body.NewPackageLimit)
	} else {
		// Paying for a limit at or below the current one books the payment
		// but changes nothing.
		logrus.Warnf("Payment %s: limit %d not above current for %s", payment.TransactionID, body.NewPackageLimit, email)
	}
	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"payment":      payment,
		"limitRaised":  raised,
		"packageLimit": body.NewPackageLimit,
	})
}

// ListPayments returns the caller's payment history.
func ListPayments(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if role != models.RoleHR {
		utils.RespondWithError(w, http.StatusForbidden, "Only HR accounts have payments")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	payments, err := paymentStore.ListPayments(ctx, email)
	if err != nil {
		logrus.Errorf("ListPayments: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch payments")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}
