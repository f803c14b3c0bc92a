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

// Assignments is the append-only hand-off history. Nothing here is ever
// deleted; a return flips the record's status in place.
type Assignments struct {
	col *mongo.Collection
}

func NewAssignments(db *mongo.Database) *Assignments {
	return &Assignments{col: db.Collection("assignments")}
}

func (s *Assignments) InsertAssignment(ctx context.Context, a *models.Assignment) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("inserting assignment: %w", err)
	}
	return nil
}

// MarkReturned closes the open assignment created for requestID. The status
// guard makes the flip idempotent under retries: only one call finds the
// record still assigned.
func (s *Assignments) MarkReturned(ctx context.Context, requestID primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"requestId": requestID, "status": models.AssignmentAssigned},
		bson.M{"$set": bson.M{"status": models.AssignmentReturned, "returnDate": at}},
	)
	if err != nil {
		return false, fmt.Errorf("closing assignment: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// ListAssignments scopes the history to an employee's own items or to
// everything an HR account has handed out, newest first.
func (s *Assignments) ListAssignments(ctx context.Context, hrEmail, employeeEmail, status string) ([]models.Assignment, error) {
	filter := bson.M{}
	if hrEmail != "" {
		filter["hrEmail"] = hrEmail
	}
	if employeeEmail != "" {
		filter["employeeEmail"] = employeeEmail
	}
	if status != "" && status != "all" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "assignmentDate", Value: -1}})
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var assignments []models.Assignment
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, fmt.Errorf("decoding assignments: %w", err)
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	return assignments, nil
}
