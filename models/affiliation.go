package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Affiliation links an employee to the HR company that granted them at least
// one asset. The (employeeEmail, hrEmail) pair is unique, backed by a compound
// index, so the first approval establishes membership and later approvals for
// the same pair leave it alone.
type Affiliation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EmployeeEmail   string             `bson:"employeeEmail" json:"employeeEmail"`
	HREmail         string             `bson:"hrEmail" json:"hrEmail"`
	CompanyName     string             `bson:"companyName" json:"companyName"`
	CompanyLogo     string             `bson:"companyLogo,omitempty" json:"companyLogo,omitempty"`
	Role            string             `bson:"role" json:"role"`
	AffiliationDate time.Time          `bson:"affiliationDate" json:"affiliationDate"`
}
