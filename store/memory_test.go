package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"assethub/approval"
	"assethub/models"
	"assethub/store"
)

// The in-memory stores stand in for the Mongo collections in orchestrator
// tests, so their conditional writes must refuse exactly like the real
// queries do. These tests pin that contract down.

func TestMemDirectory_SeatBounds(t *testing.T) {
	ctx := context.Background()
	d := store.NewMemDirectory()
	d.AddUser(models.User{
		Email:        "hr@orbit.example",
		Role:         models.RoleHR,
		PackageLimit: 2,
	})
	d.AddUser(models.User{
		Email: "amy@orbit.example",
		Role:  models.RoleEmployee,
	})

	err := d.IncrementSeatCount(ctx, "ghost@orbit.example", 1)
	require.ErrorIs(t, err, approval.ErrNotFound)

	// Only HR accounts carry a seat counter.
	err = d.IncrementSeatCount(ctx, "amy@orbit.example", 1)
	require.ErrorIs(t, err, approval.ErrNotFound)

	require.NoError(t, d.IncrementSeatCount(ctx, "hr@orbit.example", 1))
	require.NoError(t, d.IncrementSeatCount(ctx, "hr@orbit.example", 1))
	err = d.IncrementSeatCount(ctx, "hr@orbit.example", 1)
	require.ErrorIs(t, err, approval.ErrSeatLimitExceeded)
	assert.Equal(t, 2, d.SeatCount("hr@orbit.example"))

	require.NoError(t, d.IncrementSeatCount(ctx, "hr@orbit.example", -1))
	require.NoError(t, d.IncrementSeatCount(ctx, "hr@orbit.example", -1))
	err = d.IncrementSeatCount(ctx, "hr@orbit.example", -1)
	require.ErrorIs(t, err, approval.ErrConflict)
	assert.Equal(t, 0, d.SeatCount("hr@orbit.example"))
}

func TestMemInventory_DecrementStopsAtZero(t *testing.T) {
	ctx := context.Background()
	inv := store.NewMemInventory()
	assetID := inv.AddAsset(models.Asset{ProductName: "Monitor", ProductQuantity: 2})

	for i := 0; i < 2; i++ {
		got, err := inv.DecrementIfAvailable(ctx, assetID)
		require.NoError(t, err)
		require.True(t, got)
	}

	got, err := inv.DecrementIfAvailable(ctx, assetID)
	require.NoError(t, err)
	require.False(t, got)
	assert.Equal(t, 0, inv.Quantity(assetID))

	got, err = inv.DecrementIfAvailable(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	require.False(t, got)

	require.NoError(t, inv.IncrementQuantity(ctx, assetID, 1))
	got, err = inv.DecrementIfAvailable(ctx, assetID)
	require.NoError(t, err)
	require.True(t, got)
}

func TestMemRequests_GuardedTransitions(t *testing.T) {
	ctx := context.Background()
	reqs := store.NewMemRequests()
	id := reqs.AddRequest(models.Request{RequesterEmail: "amy@orbit.example"})
	now := time.Now().UTC()

	ok, err := reqs.UpdateStatus(ctx, id, models.RequestPending, models.RequestApproved, now)
	require.NoError(t, err)
	require.True(t, ok)

	r, err := reqs.FindRequestByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.NotNil(t, r.ApprovalDate)

	// Stale expectation loses.
	ok, err = reqs.UpdateStatus(ctx, id, models.RequestPending, models.RequestRejected, now)
	require.NoError(t, err)
	require.False(t, ok)

	// Reverting to pending clears the approval stamp.
	ok, err = reqs.UpdateStatus(ctx, id, models.RequestApproved, models.RequestPending, now)
	require.NoError(t, err)
	require.True(t, ok)

	r, err = reqs.FindRequestByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Nil(t, r.ApprovalDate)
	assert.Equal(t, models.RequestPending, r.RequestStatus)
}

func TestMemAffiliations_PairUnique(t *testing.T) {
	ctx := context.Background()
	reg := store.NewMemAffiliations()
	aff := models.Affiliation{
		EmployeeEmail: "amy@orbit.example",
		HREmail:       "hr@orbit.example",
		CompanyName:   "Orbit Labs",
	}

	inserted, err := reg.InsertIfAbsent(ctx, &aff)
	require.NoError(t, err)
	require.True(t, inserted)

	dup := aff
	dup.ID = primitive.NilObjectID
	inserted, err = reg.InsertIfAbsent(ctx, &dup)
	require.NoError(t, err)
	require.False(t, inserted)
	assert.Equal(t, 1, reg.Count())

	deleted, err := reg.DeleteAffiliation(ctx, aff.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = reg.DeleteAffiliation(ctx, aff.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	// The pair is free again once the row is gone.
	inserted, err = reg.InsertIfAbsent(ctx, &models.Affiliation{
		EmployeeEmail: "amy@orbit.example",
		HREmail:       "hr@orbit.example",
	})
	require.NoError(t, err)
	require.True(t, inserted)
}
