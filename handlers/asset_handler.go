// handlers/asset_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"assethub/models"
	"assethub/utils"
)

// CreateAsset adds a catalog entry to the HR account's inventory.
func CreateAsset(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if role != models.RoleHR {
		utils.RespondWithError(w, http.StatusForbidden, "Only HR accounts manage assets")
		return
	}

	var body struct {
		ProductName     string `json:"productName"`
		ProductType     string `json:"productType"`
		ProductImage    string `json:"productImage,omitempty"`
		ProductQuantity int    `json:"productQuantity"`
	}
	if err := utils.ParseJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if body.ProductName == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Product name is required")
		return
	}
	if body.ProductType != models.AssetReturnable && body.ProductType != models.AssetNonReturnable {
		utils.RespondWithError(w, http.StatusBadRequest, "Product type must be Returnable or Non-returnable")
		return
	}
	if body.ProductQuantity < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Quantity cannot be negative")
		return
	}

	asset := models.Asset{
		HREmail:         email,
		ProductName:     body.ProductName,
		ProductType:     body.ProductType,
		ProductImage:    body.ProductImage,
		ProductQuantity: body.ProductQuantity,
		DateAdded:       time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := assetStore.InsertAsset(ctx, &asset); err != nil {
		logrus.Errorf("CreateAsset: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create asset")
		return
	}

	logrus.Infof("Created asset %s (%s) for %s", asset.ProductName, asset.ID.Hex(), email)
	utils.RespondWithJSON(w, http.StatusCreated, asset)
}

// ListAssets returns a catalog. HR accounts see their own; employees browse a
// company's catalog via the hrEmail query parameter.
func ListAssets(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	query := r.URL.Query()
	hrEmail := email
	if role != models.RoleHR {
		hrEmail = query.Get("hrEmail")
		if hrEmail == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "hrEmail query parameter required")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	assets, err := assetStore.ListAssets(ctx, hrEmail, query.Get("type"), query.Get("search"), query.Get("sortQty"))
	if err != nil {
		logrus.Errorf("ListAssets: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch assets")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"assets": assets,
		"count":  len(assets),
	})
}

// GetAsset returns a single catalog entry.
func GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid asset ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	asset, err := assetStore.FindAssetByID(ctx, id)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch asset")
		return
	}
	if asset == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Asset not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, asset)
}

// UpdateAsset edits the catalog fields of an asset the caller owns.
func UpdateAsset(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok || role != models.RoleHR {
		utils.RespondWithError(w, http.StatusForbidden, "Only HR accounts manage assets")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid asset ID format")
		return
	}

	var body struct {
		ProductName     string `json:"productName,omitempty"`
		ProductType     string `json:"productType,omitempty"`
		ProductImage    string `json:"productImage,omitempty"`
		ProductQuantity *int   `json:"productQuantity,omitempty"`
	}
	if err := utils.ParseJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	set := bson.M{}
	if body.ProductName != "" {
		set["productName"] = body.ProductName
	}
	if body.ProductType != "" {
		if body.ProductType != models.AssetReturnable && body.ProductType != models.AssetNonReturnable {
			utils.RespondWithError(w, http.StatusBadRequest, "Product type must be Returnable or Non-returnable")
			return
		}
		set["productType"] = body.ProductType
	}
	if body.ProductImage != "" {
		set["productImage"] = body.ProductImage
	}
	if body.ProductQuantity != nil {
		if *body.ProductQuantity < 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Quantity cannot be negative")
			return
		}
		set["productQuantity"] = *body.ProductQuantity
	}
	if len(set) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	matched, err := assetStore.UpdateAsset(ctx, id, email, set)
	if err != nil {
		logrus.Errorf("UpdateAsset: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update asset")
		return
	}
	if !matched {
		utils.RespondWithError(w, http.StatusNotFound, "Asset not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Asset updated successfully",
		"id":      id.Hex(),
	})
}

// DeleteAsset removes a catalog entry. Requests already made against it keep
// their denormalized snapshot, so history survives the deletion.
func DeleteAsset(w http.ResponseWriter, r *http.Request) {
	email, _, role, ok := identity(r)
	if !ok || role != models.RoleHR {
		utils.RespondWithError(w, http.StatusForbidden, "Only HR accounts manage assets")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid asset ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	deleted, err := assetStore.DeleteAsset(ctx, id, email)
	if err != nil {
		logrus.Errorf("DeleteAsset: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete asset")
		return
	}
	if !deleted {
		utils.RespondWithError(w, http.StatusNotFound, "Asset not found")
		return
	}

	logrus.Infof("Deleted asset %s by %s", id.Hex(), email)
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Asset deleted successfully",
		"id":      id.Hex(),
	})
}
