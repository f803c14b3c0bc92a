package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AssignmentAssigned = "assigned"
	AssignmentReturned = "returned"
)

// Assignment is the historical record of one asset handed to one employee,
// written only when an approval cascade runs. Records are append-only: a
// return flips the status but nothing is ever deleted.
type Assignment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID      primitive.ObjectID `bson:"requestId" json:"requestId"`
	AssetID        primitive.ObjectID `bson:"assetId" json:"assetId"`
	AssetName      string             `bson:"assetName" json:"assetName"`
	AssetType      string             `bson:"assetType" json:"assetType"`
	AssetImage     string             `bson:"assetImage,omitempty" json:"assetImage,omitempty"`
	EmployeeEmail  string             `bson:"employeeEmail" json:"employeeEmail"`
	EmployeeName   string             `bson:"employeeName" json:"employeeName"`
	HREmail        string             `bson:"hrEmail" json:"hrEmail"`
	AssignmentDate time.Time          `bson:"assignmentDate" json:"assignmentDate"`
	Status         string             `bson:"status" json:"status"` // assigned, returned
	ReturnDate     *time.Time         `bson:"returnDate,omitempty" json:"returnDate,omitempty"`
}
