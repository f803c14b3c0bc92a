package approval_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"assethub/approval"
	"assethub/models"
	"assethub/store"
)

const (
	hrEmail   = "hr@orbit.example"
	devEmail  = "amy@orbit.example"
	dev2Email = "ben@orbit.example"
)

// fixture wires an orchestrator to the in-memory stores so tests can drive
// cascades and inspect every collection afterwards.
type fixture struct {
	directory    *store.MemDirectory
	inventory    *store.MemInventory
	requests     *store.MemRequests
	assignments  *store.MemAssignments
	affiliations *store.MemAffiliations
	cascades     *store.MemCascadeLogs
	orch         *approval.Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		directory:    store.NewMemDirectory(),
		inventory:    store.NewMemInventory(),
		requests:     store.NewMemRequests(),
		assignments:  store.NewMemAssignments(),
		affiliations: store.NewMemAffiliations(),
		cascades:     store.NewMemCascadeLogs(),
	}
	f.orch = approval.New(f.directory, f.inventory, f.requests, f.assignments, f.affiliations, f.cascades)
	return f
}

func (f *fixture) seedHR(seats, limit int) {
	f.directory.AddUser(models.User{
		Email:            hrEmail,
		Name:             "Orbit HR",
		Role:             models.RoleHR,
		CompanyName:      "Orbit Labs",
		PackageLimit:     limit,
		CurrentEmployees: seats,
	})
}

func (f *fixture) seedAsset(name, productType string, qty int) primitive.ObjectID {
	return f.inventory.AddAsset(models.Asset{
		HREmail:         hrEmail,
		ProductName:     name,
		ProductType:     productType,
		ProductQuantity: qty,
	})
}

// seedRequest seeds a pending request carrying the asset snapshot, the same
// shape the create-request handler writes.
func (f *fixture) seedRequest(t *testing.T, assetID primitive.ObjectID, requester string) primitive.ObjectID {
	t.Helper()

	asset, err := f.inventory.FindAssetByID(context.Background(), assetID)
	require.NoError(t, err)
	require.NotNil(t, asset)

	return f.requests.AddRequest(models.Request{
		RequesterEmail: requester,
		RequesterName:  "Test Employee",
		AssetID:        assetID,
		AssetName:      asset.ProductName,
		AssetType:      asset.ProductType,
		HREmail:        hrEmail,
		RequestDate:    time.Now().UTC(),
	})
}

func stepNames(log models.CascadeLog) []string {
	names := make([]string, 0, len(log.Steps))
	for _, s := range log.Steps {
		names = append(names, s.Name)
	}
	return names
}

func TestDecide_UnknownDecision(t *testing.T) {
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 1)
	reqID := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(context.Background(), reqID, "maybe")

	require.ErrorIs(t, err, approval.ErrInvalidDecision)
	assert.Equal(t, models.RequestPending, f.requests.Status(reqID))
	assert.Equal(t, 1, f.inventory.Quantity(assetID))
}

func TestDecide_MissingRequest(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Decide(context.Background(), primitive.NewObjectID(), models.RequestApproved)

	require.ErrorIs(t, err, approval.ErrNotFound)
}

func TestDecide_RejectWritesOnlyTheRequest(t *testing.T) {
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 3)
	reqID := f.seedRequest(t, assetID, devEmail)

	out, err := f.orch.Decide(context.Background(), reqID, models.RequestRejected)

	require.NoError(t, err)
	assert.Equal(t, reqID.Hex(), out.ID)
	assert.Equal(t, models.RequestRejected, out.Status)
	assert.Equal(t, int64(1), out.Modified)

	assert.Equal(t, models.RequestRejected, f.requests.Status(reqID))
	assert.Equal(t, 3, f.inventory.Quantity(assetID))
	assert.Zero(t, f.assignments.Count())
	assert.Zero(t, f.affiliations.Count())
	assert.Zero(t, f.directory.SeatCount(hrEmail))
	assert.Empty(t, f.cascades.ByEntity(reqID))
}

func TestDecide_ApproveRunsFullCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 2)
	reqID := f.seedRequest(t, assetID, devEmail)

	out, err := f.orch.Decide(ctx, reqID, models.RequestApproved)

	require.NoError(t, err)
	assert.Equal(t, reqID.Hex(), out.ID)
	assert.Equal(t, models.RequestApproved, out.Status)
	assert.Equal(t, int64(5), out.Modified)

	assert.Equal(t, models.RequestApproved, f.requests.Status(reqID))
	assert.Equal(t, 1, f.inventory.Quantity(assetID))

	recs := f.assignments.ByRequest(reqID)
	require.Len(t, recs, 1)
	assert.Equal(t, models.AssignmentAssigned, recs[0].Status)
	assert.Equal(t, devEmail, recs[0].EmployeeEmail)
	assert.Equal(t, "Test Employee", recs[0].EmployeeName)
	assert.Equal(t, hrEmail, recs[0].HREmail)
	assert.Equal(t, "MacBook Pro", recs[0].AssetName)

	aff, err := f.affiliations.FindByPair(ctx, devEmail, hrEmail)
	require.NoError(t, err)
	require.NotNil(t, aff)
	assert.Equal(t, "Orbit Labs", aff.CompanyName)
	assert.Equal(t, models.RoleEmployee, aff.Role)
	assert.Equal(t, 1, f.directory.SeatCount(hrEmail))

	logs := f.cascades.ByEntity(reqID)
	require.Len(t, logs, 1)
	assert.Equal(t, approval.ActionApprove, logs[0].Action)
	assert.Equal(t, models.CascadeComplete, logs[0].Status)
	require.NotNil(t, logs[0].FinishedAt)
	assert.Equal(t, []string{
		approval.StepStatusCommit,
		approval.StepInventory,
		approval.StepAssignment,
		approval.StepAffiliation,
		approval.StepSeatCount,
	}, stepNames(logs[0]))
}

func TestDecide_DecisionIsOneShot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 2)
	reqID := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(ctx, reqID, models.RequestApproved)
	require.NoError(t, err)

	_, err = f.orch.Decide(ctx, reqID, models.RequestApproved)
	require.ErrorIs(t, err, approval.ErrConflict)
	_, err = f.orch.Decide(ctx, reqID, models.RequestRejected)
	require.ErrorIs(t, err, approval.ErrConflict)

	// One decrement, one assignment, one seat. The repeats never started a
	// second cascade.
	assert.Equal(t, 1, f.inventory.Quantity(assetID))
	assert.Equal(t, 1, f.assignments.Count())
	assert.Equal(t, 1, f.affiliations.Count())
	assert.Equal(t, 1, f.directory.SeatCount(hrEmail))
	assert.Len(t, f.cascades.ByEntity(reqID), 1)
}

func TestDecide_RepeatApprovalSkipsMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("Monitor", models.AssetReturnable, 2)
	req1 := f.seedRequest(t, assetID, devEmail)
	req2 := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(ctx, req1, models.RequestApproved)
	require.NoError(t, err)

	out, err := f.orch.Decide(ctx, req2, models.RequestApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Modified)

	assert.Equal(t, 0, f.inventory.Quantity(assetID))
	assert.Equal(t, 2, f.assignments.Count())
	assert.Equal(t, 1, f.affiliations.Count())
	assert.Equal(t, 1, f.directory.SeatCount(hrEmail))

	logs := f.cascades.ByEntity(req2)
	require.Len(t, logs, 1)
	assert.Equal(t, []string{
		approval.StepStatusCommit,
		approval.StepInventory,
		approval.StepAssignment,
	}, stepNames(logs[0]))
}

func TestDecide_ExistingMemberApprovedAtFullSeats(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(1, 1)

	inserted, err := f.affiliations.InsertIfAbsent(ctx, &models.Affiliation{
		EmployeeEmail:   devEmail,
		HREmail:         hrEmail,
		CompanyName:     "Orbit Labs",
		Role:            models.RoleEmployee,
		AffiliationDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, inserted)

	assetID := f.seedAsset("Keyboard", models.AssetNonReturnable, 1)
	reqID := f.seedRequest(t, assetID, devEmail)

	// The seat bound only gates new members. An already affiliated employee
	// gets assets even when the company is full.
	out, err := f.orch.Decide(ctx, reqID, models.RequestApproved)

	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Modified)
	assert.Equal(t, 1, f.affiliations.Count())
	assert.Equal(t, 1, f.directory.SeatCount(hrEmail))
}

func TestDecide_OutOfStockBeforeAnyWrite(t *testing.T) {
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 0)
	reqID := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(context.Background(), reqID, models.RequestApproved)

	require.ErrorIs(t, err, approval.ErrOutOfStock)
	assert.Equal(t, models.RequestPending, f.requests.Status(reqID))
	assert.Zero(t, f.assignments.Count())
	assert.Zero(t, f.affiliations.Count())
	assert.Empty(t, f.cascades.ByEntity(reqID))
}

func TestDecide_SeatLimitBeforeAnyWrite(t *testing.T) {
	f := newFixture()
	f.seedHR(2, 2)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 5)
	reqID := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(context.Background(), reqID, models.RequestApproved)

	require.ErrorIs(t, err, approval.ErrSeatLimitExceeded)
	assert.Equal(t, models.RequestPending, f.requests.Status(reqID))
	assert.Equal(t, 5, f.inventory.Quantity(assetID))
	assert.Zero(t, f.affiliations.Count())
	assert.Empty(t, f.cascades.ByEntity(reqID))
}

func TestDecide_ConcurrentApprovalsOnLastUnit(t *testing.T) {
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 1)
	ids := []primitive.ObjectID{
		f.seedRequest(t, assetID, devEmail),
		f.seedRequest(t, assetID, dev2Email),
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orch.Decide(context.Background(), ids[i], models.RequestApproved)
		}(i)
	}
	wg.Wait()

	var approvedID, starvedID primitive.ObjectID
	var starvedErr error
	for i, err := range errs {
		if err == nil {
			require.True(t, approvedID.IsZero(), "both requests won the last unit")
			approvedID = ids[i]
		} else {
			starvedID = ids[i]
			starvedErr = err
		}
	}
	require.False(t, approvedID.IsZero(), "no request won the last unit")
	require.ErrorIs(t, starvedErr, approval.ErrOutOfStock)

	// The loser's request is pending again and can be decided once stock
	// comes back.
	assert.Equal(t, models.RequestApproved, f.requests.Status(approvedID))
	assert.Equal(t, models.RequestPending, f.requests.Status(starvedID))
	assert.Equal(t, 0, f.inventory.Quantity(assetID))
	assert.Equal(t, 1, f.assignments.Count())
	assert.Equal(t, 1, f.affiliations.Count())
	assert.Equal(t, 1, f.directory.SeatCount(hrEmail))
}

func TestDecide_ConcurrentFirstApprovalsRespectSeatBound(t *testing.T) {
	f := newFixture()
	f.seedHR(0, 1)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 5)
	ids := []primitive.ObjectID{
		f.seedRequest(t, assetID, devEmail),
		f.seedRequest(t, assetID, dev2Email),
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orch.Decide(context.Background(), ids[i], models.RequestApproved)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, approval.ErrSeatLimitExceeded)
		}
	}
	require.Equal(t, 1, winners)

	// The loser may fail before or after its own status commit; membership
	// and the seat counter stay within the bound either way.
	assert.Equal(t, 1, f.affiliations.Count())
	assert.Equal(t, 1, f.directory.SeatCount(hrEmail))
}

func TestDecide_AssignmentFaultReportsPartialCascade(t *testing.T) {
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 1)
	reqID := f.seedRequest(t, assetID, devEmail)

	faulty := errors.New("write timeout")
	f.assignments.InsertErr = faulty

	_, err := f.orch.Decide(context.Background(), reqID, models.RequestApproved)

	var cascadeErr *approval.CascadeError
	require.ErrorAs(t, err, &cascadeErr)
	assert.Equal(t, approval.StepAssignment, cascadeErr.Step)
	require.ErrorIs(t, err, faulty)

	// Committed steps stand; the log names where the cascade stopped.
	assert.Equal(t, models.RequestApproved, f.requests.Status(reqID))
	assert.Equal(t, 0, f.inventory.Quantity(assetID))
	assert.Zero(t, f.assignments.Count())
	assert.Zero(t, f.affiliations.Count())

	logs := f.cascades.ByEntity(reqID)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CascadeFailed, logs[0].Status)
	assert.Equal(t, approval.StepAssignment, logs[0].FailedStep)
	assert.NotEmpty(t, logs[0].Error)
	assert.Equal(t, []string{
		approval.StepStatusCommit,
		approval.StepInventory,
	}, stepNames(logs[0]))
}

func TestDecide_SeatFaultUndoesMembership(t *testing.T) {
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 1)
	reqID := f.seedRequest(t, assetID, devEmail)

	f.directory.SeatErr = errors.New("write timeout")

	_, err := f.orch.Decide(context.Background(), reqID, models.RequestApproved)

	var cascadeErr *approval.CascadeError
	require.ErrorAs(t, err, &cascadeErr)
	assert.Equal(t, approval.StepSeatCount, cascadeErr.Step)

	// The asset grant stands, but the membership insert was rolled back so
	// the registry and the counter agree.
	assert.Equal(t, models.RequestApproved, f.requests.Status(reqID))
	assert.Equal(t, 1, f.assignments.Count())
	assert.Zero(t, f.affiliations.Count())
	assert.Zero(t, f.directory.SeatCount(hrEmail))

	logs := f.cascades.ByEntity(reqID)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CascadeFailed, logs[0].Status)
	assert.Equal(t, approval.StepSeatCount, logs[0].FailedStep)
	assert.Contains(t, stepNames(logs[0]), approval.StepAffiliation)
}

func TestDecide_StockNeverOverdrawn(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("Headset", models.AssetReturnable, 2)
	reqIDs := []primitive.ObjectID{
		f.seedRequest(t, assetID, devEmail),
		f.seedRequest(t, assetID, devEmail),
		f.seedRequest(t, assetID, devEmail),
	}

	for _, id := range reqIDs[:2] {
		_, err := f.orch.Decide(ctx, id, models.RequestApproved)
		require.NoError(t, err)
	}

	_, err := f.orch.Decide(ctx, reqIDs[2], models.RequestApproved)
	require.ErrorIs(t, err, approval.ErrOutOfStock)

	assert.Equal(t, 0, f.inventory.Quantity(assetID))
	assert.Equal(t, 2, f.assignments.Count())
	assert.Equal(t, models.RequestPending, f.requests.Status(reqIDs[2]))
}

func TestReturnAsset_RestoresStockAndClosesAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 1)
	reqID := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(ctx, reqID, models.RequestApproved)
	require.NoError(t, err)
	require.Equal(t, 0, f.inventory.Quantity(assetID))

	out, err := f.orch.ReturnAsset(ctx, reqID)

	require.NoError(t, err)
	assert.Equal(t, models.RequestReturned, out.Status)
	assert.Equal(t, int64(3), out.Modified)

	assert.Equal(t, models.RequestReturned, f.requests.Status(reqID))
	assert.Equal(t, 1, f.inventory.Quantity(assetID))

	recs := f.assignments.ByRequest(reqID)
	require.Len(t, recs, 1)
	assert.Equal(t, models.AssignmentReturned, recs[0].Status)
	require.NotNil(t, recs[0].ReturnDate)

	// Returning an asset ends the loan, not the membership.
	assert.Equal(t, 1, f.affiliations.Count())
	assert.Equal(t, 1, f.directory.SeatCount(hrEmail))

	logs := f.cascades.ByEntity(reqID)
	require.Len(t, logs, 2)
	actions := []string{logs[0].Action, logs[1].Action}
	assert.Contains(t, actions, approval.ActionReturn)
	for _, lg := range logs {
		assert.Equal(t, models.CascadeComplete, lg.Status)
	}
}

func TestReturnAsset_SecondReturnConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 1)
	reqID := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(ctx, reqID, models.RequestApproved)
	require.NoError(t, err)
	_, err = f.orch.ReturnAsset(ctx, reqID)
	require.NoError(t, err)

	_, err = f.orch.ReturnAsset(ctx, reqID)

	require.ErrorIs(t, err, approval.ErrConflict)
	assert.Equal(t, 1, f.inventory.Quantity(assetID))

	recs := f.assignments.ByRequest(reqID)
	require.Len(t, recs, 1)
	assert.Equal(t, models.AssignmentReturned, recs[0].Status)
}

func TestReturnAsset_NonReturnableRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("Notebook", models.AssetNonReturnable, 1)
	reqID := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(ctx, reqID, models.RequestApproved)
	require.NoError(t, err)

	_, err = f.orch.ReturnAsset(ctx, reqID)

	require.ErrorIs(t, err, approval.ErrConflict)
	assert.Equal(t, 0, f.inventory.Quantity(assetID))
	assert.Equal(t, models.RequestApproved, f.requests.Status(reqID))
}

func TestReturnAsset_UndecidedRequestRefused(t *testing.T) {
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 1)
	reqID := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.ReturnAsset(context.Background(), reqID)

	require.ErrorIs(t, err, approval.ErrConflict)
	assert.Equal(t, models.RequestPending, f.requests.Status(reqID))
	assert.Equal(t, 1, f.inventory.Quantity(assetID))
}

func TestReturnAsset_MissingRequest(t *testing.T) {
	f := newFixture()

	_, err := f.orch.ReturnAsset(context.Background(), primitive.NewObjectID())

	require.ErrorIs(t, err, approval.ErrNotFound)
}

func TestRemoveAffiliation_FreesSeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 1)
	reqID := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(ctx, reqID, models.RequestApproved)
	require.NoError(t, err)

	aff, err := f.affiliations.FindByPair(ctx, devEmail, hrEmail)
	require.NoError(t, err)
	require.NotNil(t, aff)

	out, err := f.orch.RemoveAffiliation(ctx, aff.ID)

	require.NoError(t, err)
	assert.Equal(t, aff.ID.Hex(), out.ID)
	assert.Equal(t, int64(2), out.Modified)
	assert.Zero(t, f.affiliations.Count())
	assert.Zero(t, f.directory.SeatCount(hrEmail))

	// Removal is a membership change. Loan history and stock stay put.
	assert.Equal(t, models.RequestApproved, f.requests.Status(reqID))
	assert.Equal(t, 1, f.assignments.Count())
	assert.Equal(t, 0, f.inventory.Quantity(assetID))

	logs := f.cascades.ByEntity(aff.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, approval.ActionRemoveAffiliation, logs[0].Action)
	assert.Equal(t, models.CascadeComplete, logs[0].Status)
}

func TestRemoveAffiliation_Missing(t *testing.T) {
	f := newFixture()

	_, err := f.orch.RemoveAffiliation(context.Background(), primitive.NewObjectID())

	require.ErrorIs(t, err, approval.ErrNotFound)
}

func TestDecide_ApprovalAfterRemovalRejoins(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedHR(0, 5)
	assetID := f.seedAsset("MacBook Pro", models.AssetReturnable, 2)
	req1 := f.seedRequest(t, assetID, devEmail)

	_, err := f.orch.Decide(ctx, req1, models.RequestApproved)
	require.NoError(t, err)

	aff, err := f.affiliations.FindByPair(ctx, devEmail, hrEmail)
	require.NoError(t, err)
	require.NotNil(t, aff)
	_, err = f.orch.RemoveAffiliation(ctx, aff.ID)
	require.NoError(t, err)

	req2 := f.seedRequest(t, assetID, devEmail)
	out, err := f.orch.Decide(ctx, req2, models.RequestApproved)

	require.NoError(t, err)
	assert.Equal(t, int64(5), out.Modified)
	assert.Equal(t, 1, f.affiliations.Count())
	assert.Equal(t, 1, f.directory.SeatCount(hrEmail))
}
