// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles understood by the backend. HR accounts represent a company and carry
// the seat-count bookkeeping; employees request and hold assets.
const (
	RoleHR       = "hr"
	RoleEmployee = "employee"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Name         string             `bson:"name" json:"name"`
	Role         string             `bson:"role" json:"role"` // hr, employee
	PasswordHash string             `bson:"passwordHash,omitempty" json:"-"`

	// HR-only fields. CurrentEmployees counts distinct affiliated employees
	// and must stay within [0, PackageLimit]; both bounds are enforced by the
	// conditional seat-count updates in the store, never by readers.
	CompanyName      string `bson:"companyName,omitempty" json:"companyName,omitempty"`
	CompanyLogo      string `bson:"companyLogo,omitempty" json:"companyLogo,omitempty"`
	PackageLimit     int    `bson:"packageLimit,omitempty" json:"packageLimit,omitempty"`
	CurrentEmployees int    `bson:"currentEmployees" json:"currentEmployees"`

	DateOfBirth string    `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// IsHR reports whether the user is an HR (company) account.
func (u *User) IsHR() bool { return u.Role == RoleHR }
