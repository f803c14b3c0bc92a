// models/request.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Request lifecycle. A request starts pending, is decided exactly once by HR
// (approved or rejected), and an approved request for a returnable asset may
// later move to returned. All transitions are guarded compare-and-set updates
// on requestStatus.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
	RequestReturned = "returned"
)

// Request is an employee's ask for one unit of an asset. Asset name, type and
// image are copied in at creation time on purpose: the request keeps its
// display data even if the asset is edited or deleted later.
type Request struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequesterEmail string             `bson:"requesterEmail" json:"requesterEmail"`
	RequesterName  string             `bson:"requesterName" json:"requesterName"`
	AssetID        primitive.ObjectID `bson:"assetId" json:"assetId"`
	AssetName      string             `bson:"assetName" json:"assetName"`
	AssetType      string             `bson:"assetType" json:"assetType"`
	AssetImage     string             `bson:"assetImage,omitempty" json:"assetImage,omitempty"`
	HREmail        string             `bson:"hrEmail" json:"hrEmail"`
	CompanyName    string             `bson:"companyName,omitempty" json:"companyName,omitempty"`
	Note           string             `bson:"note,omitempty" json:"note,omitempty"`
	RequestStatus  string             `bson:"requestStatus" json:"requestStatus"` // pending, approved, rejected, returned
	RequestDate    time.Time          `bson:"requestDate" json:"requestDate"`
	ApprovalDate   *time.Time         `bson:"approvalDate,omitempty" json:"approvalDate,omitempty"`
	ReturnDate     *time.Time         `bson:"returnDate,omitempty" json:"returnDate,omitempty"`
}
