// models/cascade_log.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CascadeRunning  = "running"
	CascadeComplete = "complete"
	CascadeFailed   = "failed"
)

// CascadeStep is one completed step of a multi-document cascade.
type CascadeStep struct {
	Name string    `bson:"name" json:"name"`
	At   time.Time `bson:"at" json:"at"`
}

// CascadeLog is the persisted step log for one decision cascade. The writes a
// cascade performs span several collections with no shared transaction, so
// this record is what tells an operator exactly how far a failed cascade got.
type CascadeLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntityID   primitive.ObjectID `bson:"entityId" json:"entityId"` // request or affiliation id
	Action     string             `bson:"action" json:"action"`     // approve, reject, return, remove_affiliation
	Status     string             `bson:"status" json:"status"`     // running, complete, failed
	Steps      []CascadeStep      `bson:"steps,omitempty" json:"steps,omitempty"`
	FailedStep string             `bson:"failedStep,omitempty" json:"failedStep,omitempty"`
	Error      string             `bson:"error,omitempty" json:"error,omitempty"`
	Details    bson.M             `bson:"details,omitempty" json:"details,omitempty"`
	StartedAt  time.Time          `bson:"startedAt" json:"startedAt"`
	FinishedAt *time.Time         `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
}
