package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assethub/models"
)

// CascadeLogs persists the step log each cascade writes as it goes. Log
// writes are best-effort: errors are logged and swallowed, never returned
// to the operation being recorded.
type CascadeLogs struct {
	col *mongo.Collection
}

func NewCascadeLogs(db *mongo.Database) *CascadeLogs {
	return &CascadeLogs{col: db.Collection("cascade_logs")}
}

// Start opens a running log entry and returns its id for the later step
// writes. The id is generated locally so a failed insert still yields a
// usable handle.
func (s *CascadeLogs) Start(ctx context.Context, entityID primitive.ObjectID, action string) primitive.ObjectID {
	entry := models.CascadeLog{
		ID:        primitive.NewObjectID(),
		EntityID:  entityID,
		Action:    action,
		Status:    models.CascadeRunning,
		StartedAt: time.Now().UTC(),
	}
	if _, err := s.col.InsertOne(ctx, entry); err != nil {
		logrus.WithError(err).WithField("entity", entityID.Hex()).Warn("failed to open cascade log")
	}
	return entry.ID
}

func (s *CascadeLogs) StepDone(ctx context.Context, logID primitive.ObjectID, step string) {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": logID},
		bson.M{"$push": bson.M{"steps": models.CascadeStep{Name: step, At: time.Now().UTC()}}},
	)
	if err != nil {
		logrus.WithError(err).WithField("step", step).Warn("failed to record cascade step")
	}
}

func (s *CascadeLogs) Complete(ctx context.Context, logID primitive.ObjectID) {
	now := time.Now().UTC()
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": logID},
		bson.M{"$set": bson.M{"status": models.CascadeComplete, "finishedAt": now}},
	)
	if err != nil {
		logrus.WithError(err).Warn("failed to close cascade log")
	}
}

func (s *CascadeLogs) Fail(ctx context.Context, logID primitive.ObjectID, step string, cause error) {
	now := time.Now().UTC()
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": logID},
		bson.M{"$set": bson.M{
			"status":     models.CascadeFailed,
			"failedStep": step,
			"error":      cause.Error(),
			"finishedAt": now,
		}},
	)
	if err != nil {
		logrus.WithError(err).WithField("step", step).Warn("failed to record cascade failure")
	}
}

// ListUnfinished returns cascades still running or failed that started before
// the cutoff. The sweeper reports these for manual reconciliation; a running
// entry older than the cutoff means the process died mid-cascade.
func (s *CascadeLogs) ListUnfinished(ctx context.Context, before time.Time) ([]models.CascadeLog, error) {
	filter := bson.M{
		"status":    bson.M{"$in": []string{models.CascadeRunning, models.CascadeFailed}},
		"startedAt": bson.M{"$lt": before},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: 1}})

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing unfinished cascades: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []models.CascadeLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("decoding cascade logs: %w", err)
	}
	return logs, nil
}
