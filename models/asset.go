// models/asset.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Asset product types. Only returnable assets can come back into stock.
const (
	AssetReturnable    = "Returnable"
	AssetNonReturnable = "Non-returnable"
)

// Asset is one catalog entry owned by an HR account. ProductQuantity is the
// available stock and the only quantity field: approving a request decrements
// it, returning a returnable asset increments it back.
type Asset struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HREmail         string             `bson:"hrEmail" json:"hrEmail"`
	ProductName     string             `bson:"productName" json:"productName"`
	ProductType     string             `bson:"productType" json:"productType"` // Returnable, Non-returnable
	ProductImage    string             `bson:"productImage,omitempty" json:"productImage,omitempty"`
	ProductQuantity int                `bson:"productQuantity" json:"productQuantity"`
	DateAdded       time.Time          `bson:"dateAdded" json:"dateAdded"`
}
