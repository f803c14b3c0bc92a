// Package store wraps the MongoDB collections behind small per-ledger types.
// Every cross-document rule (stock, seat counts, the request state machine)
// is enforced here as a single conditional write, never as read-then-write.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assethub/approval"
	"assethub/models"
)

// Users is the account directory, employees and HR alike.
type Users struct {
	col *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{col: db.Collection("users")}
}

// FindUserByEmail returns (nil, nil) when no account has that email.
func (s *Users) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &u, nil
}

// Upsert writes the account keyed by email and returns the stored document.
// CreatedAt and the seat count are only set on first insert; later saves never
// touch currentEmployees, which belongs to the affiliation bookkeeping alone.
func (s *Users) Upsert(ctx context.Context, u *models.User) (*models.User, error) {
	set := bson.M{
		"name": u.Name,
		"role": u.Role,
	}
	if u.PasswordHash != "" {
		set["passwordHash"] = u.PasswordHash
	}
	if u.Role == models.RoleHR {
		set["companyName"] = u.CompanyName
		set["companyLogo"] = u.CompanyLogo
		if u.PackageLimit > 0 {
			set["packageLimit"] = u.PackageLimit
		}
	}
	if u.DateOfBirth != "" {
		set["dateOfBirth"] = u.DateOfBirth
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.col.UpdateOne(ctx, bson.M{"email": u.Email}, bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"email":            u.Email,
			"currentEmployees": 0,
			"createdAt":        time.Now().UTC(),
		},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	return s.FindUserByEmail(ctx, u.Email)
}

// IncrementSeatCount adjusts an HR account's employee counter by delta inside
// one conditional update, so the bound check and the write cannot be split by
// a concurrent cascade. Increments require a free seat; decrements require a
// counter above zero.
func (s *Users) IncrementSeatCount(ctx context.Context, hrEmail string, delta int) error {
	filter := bson.M{"email": hrEmail, "role": models.RoleHR}
	if delta > 0 {
		filter["$expr"] = bson.M{"$lt": bson.A{"$currentEmployees", "$packageLimit"}}
	} else {
		filter["currentEmployees"] = bson.M{"$gt": 0}
	}

	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"currentEmployees": delta}})
	if err != nil {
		return fmt.Errorf("updating seat count: %w", err)
	}
	if res.MatchedCount == 0 {
		// The guard refused or the account is gone; tell the two apart.
		count, err := s.col.CountDocuments(ctx, bson.M{"email": hrEmail, "role": models.RoleHR})
		if err != nil {
			return fmt.Errorf("checking hr account: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("hr account %s: %w", hrEmail, approval.ErrNotFound)
		}
		if delta > 0 {
			return fmt.Errorf("hr account %s has no free seats: %w", hrEmail, approval.ErrSeatLimitExceeded)
		}
		return fmt.Errorf("seat count for %s already zero: %w", hrEmail, approval.ErrConflict)
	}
	return nil
}

// RaisePackageLimit bumps an HR account's seat capacity, refusing to lower it
// below the current value. Used by the payment flow.
func (s *Users) RaisePackageLimit(ctx context.Context, hrEmail string, newLimit int) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"email": hrEmail, "role": models.RoleHR, "packageLimit": bson.M{"$lt": newLimit}},
		bson.M{"$set": bson.M{"packageLimit": newLimit}},
	)
	if err != nil {
		return false, fmt.Errorf("raising package limit: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// FindUserByID returns (nil, nil) when the account does not exist.
func (s *Users) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &u, nil
}
