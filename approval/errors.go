// Package approval implements the request decision workflow: the guarded
// state machine on requests and the multi-document cascade an approval
// triggers (stock decrement, assignment history, affiliation membership and
// seat-count bookkeeping). It talks to storage through narrow interfaces and
// owns no collection itself.
package approval

import (
	"errors"
	"fmt"
)

// Client-visible error classes. NotFound and Conflict are never retried
// automatically; OutOfStock and SeatLimitExceeded abort an approval before
// any write happens.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrOutOfStock        = errors.New("out of stock")
	ErrSeatLimitExceeded = errors.New("seat limit exceeded")
	ErrInvalidDecision   = errors.New("invalid decision")
)

// Cascade step names, recorded in the step log in completion order.
const (
	StepStatusCommit = "status_commit"
	StepStatusRevert = "status_revert"
	StepInventory    = "inventory"
	StepAssignment   = "assignment"
	StepAffiliation  = "affiliation"
	StepSeatCount    = "seat_count"
)

// Cascade actions, one per orchestrator operation that writes more than a
// single document.
const (
	ActionApprove           = "approve"
	ActionReturn            = "return"
	ActionRemoveAffiliation = "remove_affiliation"
)

// CascadeError reports a cascade that stopped partway through: every step
// before Step committed, Step itself did not. The persisted cascade log holds
// the same information for operators, since partial state must be reconciled
// manually rather than silently reported as success.
type CascadeError struct {
	Step string
	Err  error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade partially applied, failed at %s: %v", e.Step, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }
