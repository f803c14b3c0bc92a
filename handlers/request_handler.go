// handlers/request_handler.go
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
	"assethub/websocket"
)

// CreateRequest files an employee's ask for one unit of an asset. The asset's
// display fields are copied into the request so it keeps rendering even after
// the catalog entry changes or disappears.
func CreateRequest(w http.ResponseWriter, r *http.Request) {
	email, name, role, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if role != models.RoleEmployee {
		utils.RespondWithError(w, http.StatusForbidden, "Only employees request assets")
		return
	}

	var body struct {
		AssetID string `json:"assetId"`
		Note    string `json:"note,omitempty"`
	}
	if err := utils.ParseJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	assetID, err := primitive.ObjectIDFromHex(body.AssetID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid asset ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	asset, err := assetStore.FindAssetByID(ctx, assetID)
	if err != nil {
		logrus.Errorf("CreateRequest: asset lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load asset")
		return
	}
	if asset == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Asset not found")
		return
	}

	req := models.Request{
		RequesterEmail: email,
		RequesterName:  name,
		AssetID:        asset.ID,
		AssetName:      asset.ProductName,
		AssetType:      asset.ProductType,
		AssetImage:     asset.ProductImage,
		HREmail:        asset.HREmail,
		Note:           body.Note,
		RequestStatus:  models.RequestPending,
		RequestDate:    time.Now().UTC(),
	}

	if hr, err := userStore.FindUserByEmail(ctx, asset.HREmail); err == nil && hr != nil {
		req.CompanyName = hr.CompanyName
	}

	if err := requestStore.InsertRequest(ctx, &req); err != nil {
		logrus.Errorf("CreateRequest: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create request")
		return
	}

	websocket.SendRequestCreated(&req)

	logrus.Infof("Request %s: %s asks for %q from %s", req.ID.Hex(), email, asset.ProductName, asset.HREmail)
	utils.RespondWithJSON(w, http.StatusCreated, req)
}

// ListRequests returns the caller's side of the request ledger: the inbox for
// HR accounts, their own history for employees.
func ListRequests(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	query := r.URL.Query()
	hrEmail, requesterEmail := "", ""
	if role == models.RoleHR {
		hrEmail = email
	} else {
		requesterEmail = email
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	requests, err := requestStore.ListRequests(ctx, hrEmail, requesterEmail, query.Get("status"), query.Get("search"))
	if err != nil {
		logrus.Errorf("ListRequests: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch requests")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"count":    len(requests),
	})
}

// DecideRequest applies the HR decision to a pending request. Approval runs
// the full grant cascade; rejection is a single status write.
func DecideRequest(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if role != models.RoleHR {
		utils.RespondWithError(w, http.StatusForbidden, "Only HR accounts decide requests")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	var body struct {
		Decision string `json:"decision"`
	}
	if err := utils.ParseJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	req, err := requestStore.FindRequestByID(ctx, id)
	if err != nil {
		logrus.Errorf("DecideRequest: request lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load request")
		return
	}
	if req == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Request not found")
		return
	}
	if req.HREmail != email {
		utils.RespondWithError(w, http.StatusForbidden, "Request belongs to another company")
		return
	}

	outcome, err := orchestrator.Decide(ctx, id, body.Decision)
	if err != nil {
		respondOpError(w, err)
		return
	}

	websocket.SendRequestDecided(req, outcome.Status)

	utils.RespondWithJSON(w, http.StatusOK, outcome)
}

// ReturnRequest hands an approved returnable asset back: stock goes up by
// one, the request and its assignment record close out.
func ReturnRequest(w http.ResponseWriter, r *http.Request) {
	email, _, _, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	req, err := requestStore.FindRequestByID(ctx, id)
	if err != nil {
		logrus.Errorf("ReturnRequest: request lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load request")
		return
	}
	if req == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Request not found")
		return
	}
	if req.RequesterEmail != email && req.HREmail != email {
		utils.RespondWithError(w, http.StatusForbidden, "Not your request")
		return
	}

	outcome, err := orchestrator.ReturnAsset(ctx, id)
	if err != nil {
		respondOpError(w, err)
		return
	}

	websocket.SendAssetReturned(req)

	utils.RespondWithJSON(w, http.StatusOK, outcome)
}
