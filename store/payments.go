package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assethub/models"
)

// Payments records package upgrades. The actual charge happens elsewhere;
// this ledger only keeps what was paid and which limit it bought.
type Payments struct {
	col *mongo.Collection
}

func NewPayments(db *mongo.Database) *Payments {
	return &Payments{col: db.Collection("payments")}
}

func (s *Payments) InsertPayment(ctx context.Context, p *models.Payment) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.TransactionID == "" {
		p.TransactionID = uuid.NewString()
	}
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

// ListPayments returns an HR account's payment history, newest first.
func (s *Payments) ListPayments(ctx context.Context, hrEmail string) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := s.col.Find(ctx, bson.M{"hrEmail": hrEmail}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("decoding payments: %w", err)
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}
