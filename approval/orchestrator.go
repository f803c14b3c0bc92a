package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"assethub/models"
)

// Directory is the user store, consulted but not owned by the orchestrator.
type Directory interface {
	// FindUserByEmail returns (nil, nil) when no user has that email.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// IncrementSeatCount adjusts an HR account's seat count by delta as a
	// single conditional write. An increment requires currentEmployees to be
	// below packageLimit and refuses with ErrSeatLimitExceeded; a decrement
	// requires currentEmployees above zero and refuses with ErrConflict.
	IncrementSeatCount(ctx context.Context, hrEmail string, delta int) error
}

// Inventory is the asset stock store.
type Inventory interface {
	// FindAssetByID returns (nil, nil) when the asset does not exist.
	FindAssetByID(ctx context.Context, id primitive.ObjectID) (*models.Asset, error)
	// DecrementIfAvailable takes one unit of stock iff productQuantity > 0,
	// as one atomic conditional update. Reports whether a unit was taken.
	DecrementIfAvailable(ctx context.Context, id primitive.ObjectID) (bool, error)
	// IncrementQuantity returns delta units to stock. A missing asset is not
	// an error: a unit of a deleted catalog entry has nowhere to land.
	IncrementQuantity(ctx context.Context, id primitive.ObjectID, delta int) error
}

// RequestLedger is the request store the state machine drives.
type RequestLedger interface {
	// FindRequestByID returns (nil, nil) when the request does not exist.
	FindRequestByID(ctx context.Context, id primitive.ObjectID) (*models.Request, error)
	// UpdateStatus performs the guarded transition from -> to, stamping
	// approvalDate or returnDate for the target status and clearing
	// approvalDate again on a revert to pending. Reports false when the
	// request was not in the expected state, which is how concurrent deciders
	// lose the race.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, at time.Time) (bool, error)
}

// AssignmentLedger is the append-only hand-off history.
type AssignmentLedger interface {
	InsertAssignment(ctx context.Context, a *models.Assignment) error
	// MarkReturned flips the assignment created for requestID from assigned
	// to returned; false when no assignment was in the assigned state.
	MarkReturned(ctx context.Context, requestID primitive.ObjectID, at time.Time) (bool, error)
}

// AffiliationRegistry is the employee/company membership mapping.
type AffiliationRegistry interface {
	// FindByPair returns (nil, nil) when the pair has no affiliation.
	FindByPair(ctx context.Context, employeeEmail, hrEmail string) (*models.Affiliation, error)
	// InsertIfAbsent inserts the affiliation unless the (employee, HR) pair
	// already exists, reporting whether a document was actually inserted.
	// Losing a concurrent insert race reports (false, nil), not an error.
	InsertIfAbsent(ctx context.Context, a *models.Affiliation) (bool, error)
	FindAffiliationByID(ctx context.Context, id primitive.ObjectID) (*models.Affiliation, error)
	DeleteAffiliation(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// CascadeLogger persists the per-operation step log. Implementations must
// swallow their own failures: losing a log write never fails the cascade.
type CascadeLogger interface {
	Start(ctx context.Context, entityID primitive.ObjectID, action string) primitive.ObjectID
	StepDone(ctx context.Context, logID primitive.ObjectID, step string)
	Complete(ctx context.Context, logID primitive.ObjectID)
	Fail(ctx context.Context, logID primitive.ObjectID, step string, cause error)
}

// Outcome is what a completed operation reports back: the entity's final
// status and the number of documents the operation modified.
type Outcome struct {
	ID       string `json:"id"`
	Status   string `json:"status,omitempty"`
	Modified int64  `json:"modifiedCount"`
}

// Orchestrator executes request decisions and their side effects. It holds no
// entity state between calls; every invocation works from fresh reads and
// conditional writes.
type Orchestrator struct {
	directory    Directory
	inventory    Inventory
	requests     RequestLedger
	assignments  AssignmentLedger
	affiliations AffiliationRegistry
	cascades     CascadeLogger

	now func() time.Time
}

func New(d Directory, inv Inventory, r RequestLedger, a AssignmentLedger, reg AffiliationRegistry, c CascadeLogger) *Orchestrator {
	return &Orchestrator{
		directory:    d,
		inventory:    inv,
		requests:     r,
		assignments:  a,
		affiliations: reg,
		cascades:     c,
		now:          time.Now,
	}
}

// Decide applies an HR decision to a pending request. decision must be
// approved or rejected. A request that is not pending fails with ErrConflict
// no matter what, so calling Decide twice can never run the cascade twice.
func (o *Orchestrator) Decide(ctx context.Context, requestID primitive.ObjectID, decision string) (Outcome, error) {
	if decision != models.RequestApproved && decision != models.RequestRejected {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	req, err := o.requests.FindRequestByID(ctx, requestID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading request: %w", err)
	}
	if req == nil {
		return Outcome{}, fmt.Errorf("request %s: %w", requestID.Hex(), ErrNotFound)
	}
	if req.RequestStatus != models.RequestPending {
		return Outcome{}, fmt.Errorf("request %s is %s: %w", requestID.Hex(), req.RequestStatus, ErrConflict)
	}

	if decision == models.RequestRejected {
		return o.reject(ctx, req)
	}
	return o.approve(ctx, req)
}

// reject is a single guarded write; nothing cascades.
func (o *Orchestrator) reject(ctx context.Context, req *models.Request) (Outcome, error) {
	ok, err := o.requests.UpdateStatus(ctx, req.ID, models.RequestPending, models.RequestRejected, o.now())
	if err != nil {
		return Outcome{}, fmt.Errorf("rejecting request: %w", err)
	}
	if !ok {
		return Outcome{}, fmt.Errorf("request %s no longer pending: %w", req.ID.Hex(), ErrConflict)
	}

	logrus.WithFields(logrus.Fields{
		"request":  req.ID.Hex(),
		"employee": req.RequesterEmail,
	}).Info("request rejected")

	return Outcome{ID: req.ID.Hex(), Status: models.RequestRejected, Modified: 1}, nil
}

func (o *Orchestrator) approve(ctx context.Context, req *models.Request) (Outcome, error) {
	// Pre-flight reads. OutOfStock and the seat limit must abort the decision
	// before any document is touched.
	asset, err := o.inventory.FindAssetByID(ctx, req.AssetID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading asset: %w", err)
	}
	if asset == nil {
		return Outcome{}, fmt.Errorf("asset %s: %w", req.AssetID.Hex(), ErrNotFound)
	}
	if asset.ProductQuantity <= 0 {
		return Outcome{}, fmt.Errorf("asset %q: %w", asset.ProductName, ErrOutOfStock)
	}

	hr, err := o.directory.FindUserByEmail(ctx, req.HREmail)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading HR account: %w", err)
	}
	if hr == nil {
		return Outcome{}, fmt.Errorf("hr account %s: %w", req.HREmail, ErrNotFound)
	}

	existing, err := o.affiliations.FindByPair(ctx, req.RequesterEmail, req.HREmail)
	if err != nil {
		return Outcome{}, fmt.Errorf("checking affiliation: %w", err)
	}
	firstApproval := existing == nil
	if firstApproval && hr.CurrentEmployees >= hr.PackageLimit {
		return Outcome{}, fmt.Errorf("hr %s at %d of %d seats: %w",
			req.HREmail, hr.CurrentEmployees, hr.PackageLimit, ErrSeatLimitExceeded)
	}

	now := o.now()
	logID := o.cascades.Start(ctx, req.ID, ActionApprove)

	// The status CAS is the concurrency gate: of any number of concurrent
	// decides on this request, exactly one observes pending and proceeds.
	ok, err := o.requests.UpdateStatus(ctx, req.ID, models.RequestPending, models.RequestApproved, now)
	if err != nil {
		o.cascades.Fail(ctx, logID, StepStatusCommit, err)
		return Outcome{}, fmt.Errorf("approving request: %w", err)
	}
	if !ok {
		o.cascades.Fail(ctx, logID, StepStatusCommit, ErrConflict)
		return Outcome{}, fmt.Errorf("request %s no longer pending: %w", req.ID.Hex(), ErrConflict)
	}
	o.cascades.StepDone(ctx, logID, StepStatusCommit)
	modified := int64(1)

	// Stock may have drained between the pre-check and here if approvals for
	// other requests on the same asset won the remaining units. Losing that
	// race reverts the status commit so the request stays decidable.
	got, err := o.inventory.DecrementIfAvailable(ctx, req.AssetID)
	if err != nil {
		o.failCascade(ctx, logID, req.ID, StepInventory, err)
		return Outcome{}, &CascadeError{Step: StepInventory, Err: err}
	}
	if !got {
		reverted, revErr := o.requests.UpdateStatus(ctx, req.ID, models.RequestApproved, models.RequestPending, now)
		if revErr != nil || !reverted {
			if revErr == nil {
				revErr = ErrConflict
			}
			o.failCascade(ctx, logID, req.ID, StepStatusRevert, revErr)
			return Outcome{}, &CascadeError{Step: StepStatusRevert, Err: revErr}
		}
		o.cascades.StepDone(ctx, logID, StepStatusRevert)
		o.cascades.Fail(ctx, logID, StepInventory, ErrOutOfStock)
		return Outcome{}, fmt.Errorf("asset %q: %w", asset.ProductName, ErrOutOfStock)
	}
	o.cascades.StepDone(ctx, logID, StepInventory)
	modified++

	assignment := &models.Assignment{
		RequestID:      req.ID,
		AssetID:        req.AssetID,
		AssetName:      req.AssetName,
		AssetType:      req.AssetType,
		AssetImage:     req.AssetImage,
		EmployeeEmail:  req.RequesterEmail,
		EmployeeName:   req.RequesterName,
		HREmail:        req.HREmail,
		AssignmentDate: now,
		Status:         models.AssignmentAssigned,
	}
	if err := o.assignments.InsertAssignment(ctx, assignment); err != nil {
		o.failCascade(ctx, logID, req.ID, StepAssignment, err)
		return Outcome{}, &CascadeError{Step: StepAssignment, Err: err}
	}
	o.cascades.StepDone(ctx, logID, StepAssignment)
	modified++

	// Joining the team is a one-time event per (employee, HR) pair, distinct
	// from each individual asset grant. Repeat approvals change nothing here.
	if firstApproval {
		aff := &models.Affiliation{
			EmployeeEmail:   req.RequesterEmail,
			HREmail:         req.HREmail,
			CompanyName:     hr.CompanyName,
			CompanyLogo:     hr.CompanyLogo,
			Role:            models.RoleEmployee,
			AffiliationDate: now,
		}
		inserted, err := o.affiliations.InsertIfAbsent(ctx, aff)
		if err != nil {
			o.failCascade(ctx, logID, req.ID, StepAffiliation, err)
			return Outcome{}, &CascadeError{Step: StepAffiliation, Err: err}
		}
		if inserted {
			o.cascades.StepDone(ctx, logID, StepAffiliation)
			modified++

			if err := o.directory.IncrementSeatCount(ctx, req.HREmail, 1); err != nil {
				// Undo the membership insert so the registry and the counter
				// cannot disagree. The asset grant itself stands; the step
				// log carries what an operator needs to reconcile.
				if _, delErr := o.affiliations.DeleteAffiliation(ctx, aff.ID); delErr != nil {
					logrus.WithError(delErr).WithField("affiliation", aff.ID.Hex()).
						Error("failed to undo affiliation after seat count refusal")
				}
				o.failCascade(ctx, logID, req.ID, StepSeatCount, err)
				return Outcome{}, &CascadeError{Step: StepSeatCount, Err: err}
			}
			o.cascades.StepDone(ctx, logID, StepSeatCount)
			modified++
		}
	}

	o.cascades.Complete(ctx, logID)

	logrus.WithFields(logrus.Fields{
		"request":  req.ID.Hex(),
		"asset":    req.AssetID.Hex(),
		"employee": req.RequesterEmail,
		"hr":       req.HREmail,
	}).Info("request approved")

	return Outcome{ID: req.ID.Hex(), Status: models.RequestApproved, Modified: modified}, nil
}

// ReturnAsset moves an approved request for a returnable asset to returned,
// putting the unit back into stock and closing the assignment record.
func (o *Orchestrator) ReturnAsset(ctx context.Context, requestID primitive.ObjectID) (Outcome, error) {
	req, err := o.requests.FindRequestByID(ctx, requestID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading request: %w", err)
	}
	if req == nil {
		return Outcome{}, fmt.Errorf("request %s: %w", requestID.Hex(), ErrNotFound)
	}
	if req.AssetType != models.AssetReturnable {
		return Outcome{}, fmt.Errorf("asset %q is not returnable: %w", req.AssetName, ErrConflict)
	}
	// The status guard is what makes double returns harmless: only the first
	// call finds the request approved, so stock is incremented exactly once.
	if req.RequestStatus != models.RequestApproved {
		return Outcome{}, fmt.Errorf("request %s is %s, not approved: %w", requestID.Hex(), req.RequestStatus, ErrConflict)
	}

	now := o.now()
	logID := o.cascades.Start(ctx, req.ID, ActionReturn)

	ok, err := o.requests.UpdateStatus(ctx, req.ID, models.RequestApproved, models.RequestReturned, now)
	if err != nil {
		o.cascades.Fail(ctx, logID, StepStatusCommit, err)
		return Outcome{}, fmt.Errorf("returning request: %w", err)
	}
	if !ok {
		o.cascades.Fail(ctx, logID, StepStatusCommit, ErrConflict)
		return Outcome{}, fmt.Errorf("request %s no longer approved: %w", req.ID.Hex(), ErrConflict)
	}
	o.cascades.StepDone(ctx, logID, StepStatusCommit)
	modified := int64(1)

	if err := o.inventory.IncrementQuantity(ctx, req.AssetID, 1); err != nil {
		o.failCascade(ctx, logID, req.ID, StepInventory, err)
		return Outcome{}, &CascadeError{Step: StepInventory, Err: err}
	}
	o.cascades.StepDone(ctx, logID, StepInventory)
	modified++

	flipped, err := o.assignments.MarkReturned(ctx, req.ID, now)
	if err != nil {
		o.failCascade(ctx, logID, req.ID, StepAssignment, err)
		return Outcome{}, &CascadeError{Step: StepAssignment, Err: err}
	}
	if !flipped {
		logrus.WithField("request", req.ID.Hex()).Warn("no assigned assignment found to close on return")
	} else {
		modified++
	}
	o.cascades.StepDone(ctx, logID, StepAssignment)

	o.cascades.Complete(ctx, logID)

	logrus.WithFields(logrus.Fields{
		"request":  req.ID.Hex(),
		"asset":    req.AssetID.Hex(),
		"employee": req.RequesterEmail,
	}).Info("asset returned")

	return Outcome{ID: req.ID.Hex(), Status: models.RequestReturned, Modified: modified}, nil
}

// RemoveAffiliation ends an employee's membership with an HR company and
// frees the seat. Assignment and request history stay untouched: removal is a
// membership change, not an asset reclamation.
func (o *Orchestrator) RemoveAffiliation(ctx context.Context, affiliationID primitive.ObjectID) (Outcome, error) {
	aff, err := o.affiliations.FindAffiliationByID(ctx, affiliationID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading affiliation: %w", err)
	}
	if aff == nil {
		return Outcome{}, fmt.Errorf("affiliation %s: %w", affiliationID.Hex(), ErrNotFound)
	}

	logID := o.cascades.Start(ctx, affiliationID, ActionRemoveAffiliation)

	deleted, err := o.affiliations.DeleteAffiliation(ctx, affiliationID)
	if err != nil {
		o.cascades.Fail(ctx, logID, StepAffiliation, err)
		return Outcome{}, fmt.Errorf("deleting affiliation: %w", err)
	}
	if !deleted {
		o.cascades.Fail(ctx, logID, StepAffiliation, ErrConflict)
		return Outcome{}, fmt.Errorf("affiliation %s already removed: %w", affiliationID.Hex(), ErrConflict)
	}
	o.cascades.StepDone(ctx, logID, StepAffiliation)

	if err := o.directory.IncrementSeatCount(ctx, aff.HREmail, -1); err != nil {
		o.failCascade(ctx, logID, affiliationID, StepSeatCount, err)
		return Outcome{}, &CascadeError{Step: StepSeatCount, Err: err}
	}
	o.cascades.StepDone(ctx, logID, StepSeatCount)

	o.cascades.Complete(ctx, logID)

	logrus.WithFields(logrus.Fields{
		"affiliation": affiliationID.Hex(),
		"employee":    aff.EmployeeEmail,
		"hr":          aff.HREmail,
	}).Info("affiliation removed")

	return Outcome{ID: affiliationID.Hex(), Modified: 2}, nil
}

// failCascade records a failed step in both the persisted log and the
// application log, naming exactly where the cascade stopped.
func (o *Orchestrator) failCascade(ctx context.Context, logID, entityID primitive.ObjectID, step string, cause error) {
	o.cascades.Fail(ctx, logID, step, cause)
	logrus.WithFields(logrus.Fields{
		"entity": entityID.Hex(),
		"step":   step,
	}).WithError(cause).Error("cascade failed partway")
}
