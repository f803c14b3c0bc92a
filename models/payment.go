package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment records a completed package upgrade for an HR account. The backend
// only consumes it to raise User.PackageLimit; provider integration lives
// elsewhere.
type Payment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HREmail         string             `bson:"hrEmail" json:"hrEmail"`
	Amount          float64            `bson:"amount" json:"amount"`
	TransactionID   string             `bson:"transactionId" json:"transactionId"`
	NewPackageLimit int                `bson:"newPackageLimit" json:"newPackageLimit"`
	Date            time.Time          `bson:"date" json:"date"`
}
