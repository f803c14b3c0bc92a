package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assethub/models"
)

// Affiliations maps employees to the HR companies they belong to. The unique
// (employeeEmail, hrEmail) index is the source of truth for membership; the
// seat counter on the HR account only mirrors it.
type Affiliations struct {
	col *mongo.Collection
}

func NewAffiliations(db *mongo.Database) *Affiliations {
	return &Affiliations{col: db.Collection("affiliations")}
}

// FindByPair returns (nil, nil) when the pair has no affiliation.
func (s *Affiliations) FindByPair(ctx context.Context, employeeEmail, hrEmail string) (*models.Affiliation, error) {
	var a models.Affiliation
	err := s.col.FindOne(ctx, bson.M{"employeeEmail": employeeEmail, "hrEmail": hrEmail}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding affiliation: %w", err)
	}
	return &a, nil
}

// InsertIfAbsent inserts the membership and lets the unique index arbitrate
// races: when two cascades insert the same pair, one wins and the other gets
// a duplicate-key error reported as (false, nil).
func (s *Affiliations) InsertIfAbsent(ctx context.Context, a *models.Affiliation) (bool, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("inserting affiliation: %w", err)
	}
	return true, nil
}

// FindAffiliationByID returns (nil, nil) when the affiliation does not exist.
func (s *Affiliations) FindAffiliationByID(ctx context.Context, id primitive.ObjectID) (*models.Affiliation, error) {
	var a models.Affiliation
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding affiliation: %w", err)
	}
	return &a, nil
}

// DeleteAffiliation reports false when the document was already gone, which
// is how a doubled removal loses without touching the seat counter.
func (s *Affiliations) DeleteAffiliation(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("deleting affiliation: %w", err)
	}
	return res.DeletedCount == 1, nil
}

// ListAffiliations returns an HR account's employees or an employee's
// companies, depending on which scope is set. Oldest membership first.
func (s *Affiliations) ListAffiliations(ctx context.Context, hrEmail, employeeEmail string) ([]models.Affiliation, error) {
	filter := bson.M{}
	if hrEmail != "" {
		filter["hrEmail"] = hrEmail
	}
	if employeeEmail != "" {
		filter["employeeEmail"] = employeeEmail
	}

	opts := options.Find().SetSort(bson.D{{Key: "affiliationDate", Value: 1}})
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing affiliations: %w", err)
	}
	defer cursor.Close(ctx)

	var affiliations []models.Affiliation
	if err := cursor.All(ctx, &affiliations); err != nil {
		return nil, fmt.Errorf("decoding affiliations: %w", err)
	}
	if affiliations == nil {
		affiliations = []models.Affiliation{}
	}
	return affiliations, nil
}
