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

// Requests is the asset-request ledger driven by the approval state machine.
type Requests struct {
	col *mongo.Collection
}

func NewRequests(db *mongo.Database) *Requests {
	return &Requests{col: db.Collection("requests")}
}

func (s *Requests) InsertRequest(ctx context.Context, r *models.Request) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.RequestDate.IsZero() {
		r.RequestDate = time.Now().UTC()
	}
	if r.RequestStatus == "" {
		r.RequestStatus = models.RequestPending
	}
	if _, err := s.col.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	return nil
}

// FindRequestByID returns (nil, nil) when the request does not exist.
func (s *Requests) FindRequestByID(ctx context.Context, id primitive.ObjectID) (*models.Request, error) {
	var r models.Request
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding request: %w", err)
	}
	return &r, nil
}

// UpdateStatus is the guarded transition: the write only lands when the
// request still holds the from status, so of any number of concurrent
// deciders exactly one wins. Decision statuses stamp approvalDate, returned
// stamps returnDate, and a revert back to pending clears approvalDate again.
func (s *Requests) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, at time.Time) (bool, error) {
	set := bson.M{"requestStatus": to}
	var unset bson.M
	switch to {
	case models.RequestApproved, models.RequestRejected:
		set["approvalDate"] = at
	case models.RequestReturned:
		set["returnDate"] = at
	case models.RequestPending:
		unset = bson.M{"approvalDate": ""}
	}

	update := bson.M{"$set": set}
	if unset != nil {
		update["$unset"] = unset
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id, "requestStatus": from}, update)
	if err != nil {
		return false, fmt.Errorf("updating request status: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// ListRequests returns requests scoped to one side of the relationship:
// hrEmail for the HR inbox, requesterEmail for an employee's own history.
// status and a name/email search narrow the result, newest first.
func (s *Requests) ListRequests(ctx context.Context, hrEmail, requesterEmail, status, search string) ([]models.Request, error) {
	filter := bson.M{}
	if hrEmail != "" {
		filter["hrEmail"] = hrEmail
	}
	if requesterEmail != "" {
		filter["requesterEmail"] = requesterEmail
	}
	if status != "" && status != "all" {
		filter["requestStatus"] = status
	}
	if search != "" {
		filter["$or"] = []bson.M{
			{"assetName": bson.M{"$regex": search, "$options": "i"}},
			{"requesterName": bson.M{"$regex": search, "$options": "i"}},
			{"requesterEmail": bson.M{"$regex": search, "$options": "i"}},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "requestDate", Value: -1}})
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []models.Request
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("decoding requests: %w", err)
	}
	if requests == nil {
		requests = []models.Request{}
	}
	return requests, nil
}
