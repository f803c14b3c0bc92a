package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assethub/models"
)

// Assets is the inventory ledger. productQuantity counts units currently
// available; handed-out units live in the assignments ledger instead.
type Assets struct {
	col *mongo.Collection
}

func NewAssets(db *mongo.Database) *Assets {
	return &Assets{col: db.Collection("assets")}
}

func (s *Assets) InsertAsset(ctx context.Context, a *models.Asset) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.DateAdded.IsZero() {
		a.DateAdded = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("inserting asset: %w", err)
	}
	return nil
}

// FindAssetByID returns (nil, nil) when the asset does not exist.
func (s *Assets) FindAssetByID(ctx context.Context, id primitive.ObjectID) (*models.Asset, error) {
	var a models.Asset
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding asset: %w", err)
	}
	return &a, nil
}

// DecrementIfAvailable takes one unit of stock iff any remain, as a single
// conditional update. Two racing approvals can both pass a read-side check,
// but only as many decrements succeed as there were units.
func (s *Assets) DecrementIfAvailable(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "productQuantity": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"productQuantity": -1}},
	)
	if err != nil {
		return false, fmt.Errorf("decrementing stock: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// IncrementQuantity puts delta units back. A missing asset is not an error;
// returns against a deleted catalog entry simply have nowhere to land.
func (s *Assets) IncrementQuantity(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"productQuantity": delta}},
	)
	if err != nil {
		return fmt.Errorf("incrementing stock: %w", err)
	}
	return nil
}

// UpdateAsset rewrites the editable catalog fields, leaving productQuantity to
// the conditional stock operations unless the caller explicitly sets it.
func (s *Assets) UpdateAsset(ctx context.Context, id primitive.ObjectID, hrEmail string, set bson.M) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "hrEmail": hrEmail},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("updating asset: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *Assets) DeleteAsset(ctx context.Context, id primitive.ObjectID, hrEmail string) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "hrEmail": hrEmail})
	if err != nil {
		return false, fmt.Errorf("deleting asset: %w", err)
	}
	return res.DeletedCount == 1, nil
}

// ListAssets returns an HR account's catalog, optionally filtered by product
// type and a case-insensitive name search, newest first. sortQty flips the
// ordering to available quantity when non-empty ("asc" or "desc").
func (s *Assets) ListAssets(ctx context.Context, hrEmail, productType, search, sortQty string) ([]models.Asset, error) {
	filter := bson.M{"hrEmail": hrEmail}
	if productType != "" && productType != "all" {
		filter["productType"] = productType
	}
	if search != "" {
		filter["productName"] = bson.M{"$regex": search, "$options": "i"}
	}

	sort := bson.D{{Key: "dateAdded", Value: -1}}
	switch sortQty {
	case "asc":
		sort = bson.D{{Key: "productQuantity", Value: 1}}
	case "desc":
		sort = bson.D{{Key: "productQuantity", Value: -1}}
	}

	cursor, err := s.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer cursor.Close(ctx)

	var assets []models.Asset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("decoding assets: %w", err)
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return assets, nil
}
