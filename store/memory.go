package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"assethub/approval"
	"assethub/models"
)

// In-memory implementations of the approval collaborators, with the same
// conditional-write semantics as the Mongo types above. Tests exercise the
// orchestrator against these instead of a live database. All methods copy on
// the way in and out, so concurrent cascades in tests race exactly like
// concurrent document updates would.

// MemDirectory is the in-memory Users counterpart. SeatErr, when set, fails
// the next seat-count update to simulate a storage fault mid-cascade.
type MemDirectory struct {
	mu      sync.Mutex
	users   map[string]*models.User
	SeatErr error
}

func NewMemDirectory() *MemDirectory {
	return &MemDirectory{users: make(map[string]*models.User)}
}

// AddUser seeds an account for a test.
func (m *MemDirectory) AddUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.Email] = &u
}

func (m *MemDirectory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MemDirectory) IncrementSeatCount(_ context.Context, hrEmail string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SeatErr != nil {
		return m.SeatErr
	}
	u, ok := m.users[hrEmail]
	if !ok || u.Role != models.RoleHR {
		return fmt.Errorf("hr account %s: %w", hrEmail, approval.ErrNotFound)
	}
	if delta > 0 && u.CurrentEmployees >= u.PackageLimit {
		return fmt.Errorf("hr account %s has no free seats: %w", hrEmail, approval.ErrSeatLimitExceeded)
	}
	if delta < 0 && u.CurrentEmployees <= 0 {
		return fmt.Errorf("seat count for %s already zero: %w", hrEmail, approval.ErrConflict)
	}
	u.CurrentEmployees += delta
	return nil
}

// SeatCount reports the stored counter, for test assertions.
func (m *MemDirectory) SeatCount(hrEmail string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[hrEmail]; ok {
		return u.CurrentEmployees
	}
	return 0
}

// MemInventory is the in-memory Assets counterpart. DecrementErr, when set,
// fails the next decrement to simulate a storage fault mid-cascade.
type MemInventory struct {
	mu           sync.Mutex
	assets       map[primitive.ObjectID]*models.Asset
	DecrementErr error
}

func NewMemInventory() *MemInventory {
	return &MemInventory{assets: make(map[primitive.ObjectID]*models.Asset)}
}

func (m *MemInventory) AddAsset(a models.Asset) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	m.assets[a.ID] = &a
	return a.ID
}

func (m *MemInventory) FindAssetByID(_ context.Context, id primitive.ObjectID) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MemInventory) DecrementIfAvailable(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DecrementErr != nil {
		return false, m.DecrementErr
	}
	a, ok := m.assets[id]
	if !ok || a.ProductQuantity <= 0 {
		return false, nil
	}
	a.ProductQuantity--
	return true, nil
}

func (m *MemInventory) IncrementQuantity(_ context.Context, id primitive.ObjectID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assets[id]; ok {
		a.ProductQuantity += delta
	}
	return nil
}

// Quantity reports current stock, for test assertions.
func (m *MemInventory) Quantity(id primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assets[id]; ok {
		return a.ProductQuantity
	}
	return 0
}

// MemRequests is the in-memory Requests counterpart.
type MemRequests struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.Request
}

func NewMemRequests() *MemRequests {
	return &MemRequests{requests: make(map[primitive.ObjectID]*models.Request)}
}

func (m *MemRequests) AddRequest(r models.Request) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.RequestStatus == "" {
		r.RequestStatus = models.RequestPending
	}
	m.requests[r.ID] = &r
	return r.ID
}

func (m *MemRequests) FindRequestByID(_ context.Context, id primitive.ObjectID) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MemRequests) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.RequestStatus != from {
		return false, nil
	}
	r.RequestStatus = to
	switch to {
	case models.RequestApproved, models.RequestRejected:
		t := at
		r.ApprovalDate = &t
	case models.RequestReturned:
		t := at
		r.ReturnDate = &t
	case models.RequestPending:
		r.ApprovalDate = nil
	}
	return true, nil
}

// Status reports a request's current status, for test assertions.
func (m *MemRequests) Status(id primitive.ObjectID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.requests[id]; ok {
		return r.RequestStatus
	}
	return ""
}

// MemAssignments is the in-memory Assignments counterpart. InsertErr, when
// set, fails the next insert to simulate a storage fault mid-cascade.
type MemAssignments struct {
	mu        sync.Mutex
	records   []*models.Assignment
	InsertErr error
}

func NewMemAssignments() *MemAssignments {
	return &MemAssignments{}
}

func (m *MemAssignments) InsertAssignment(_ context.Context, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	cp := *a
	m.records = append(m.records, &cp)
	return nil
}

func (m *MemAssignments) MarkReturned(_ context.Context, requestID primitive.ObjectID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.RequestID == requestID && rec.Status == models.AssignmentAssigned {
			rec.Status = models.AssignmentReturned
			t := at
			rec.ReturnDate = &t
			return true, nil
		}
	}
	return false, nil
}

// ByRequest returns copies of the assignments for one request.
func (m *MemAssignments) ByRequest(requestID primitive.ObjectID) []models.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assignment
	for _, rec := range m.records {
		if rec.RequestID == requestID {
			out = append(out, *rec)
		}
	}
	return out
}

// Count reports how many assignment records exist.
func (m *MemAssignments) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// MemAffiliations is the in-memory Affiliations counterpart, with the unique
// pair rule enforced under the same lock as the insert.
type MemAffiliations struct {
	mu     sync.Mutex
	byID   map[primitive.ObjectID]*models.Affiliation
	byPair map[string]primitive.ObjectID
	DelErr error
}

func NewMemAffiliations() *MemAffiliations {
	return &MemAffiliations{
		byID:   make(map[primitive.ObjectID]*models.Affiliation),
		byPair: make(map[string]primitive.ObjectID),
	}
}

func pairKey(employeeEmail, hrEmail string) string {
	return employeeEmail + "\x00" + hrEmail
}

func (m *MemAffiliations) FindByPair(_ context.Context, employeeEmail, hrEmail string) (*models.Affiliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPair[pairKey(employeeEmail, hrEmail)]
	if !ok {
		return nil, nil
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MemAffiliations) InsertIfAbsent(_ context.Context, a *models.Affiliation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(a.EmployeeEmail, a.HREmail)
	if _, exists := m.byPair[key]; exists {
		return false, nil
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	cp := *a
	m.byID[a.ID] = &cp
	m.byPair[key] = a.ID
	return true, nil
}

func (m *MemAffiliations) FindAffiliationByID(_ context.Context, id primitive.ObjectID) (*models.Affiliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MemAffiliations) DeleteAffiliation(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DelErr != nil {
		return false, m.DelErr
	}
	a, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	delete(m.byID, id)
	delete(m.byPair, pairKey(a.EmployeeEmail, a.HREmail))
	return true, nil
}

// Count reports how many affiliations exist.
func (m *MemAffiliations) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// MemCascadeLogs records step logs in memory so tests can assert on them.
type MemCascadeLogs struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID]*models.CascadeLog
}

func NewMemCascadeLogs() *MemCascadeLogs {
	return &MemCascadeLogs{entries: make(map[primitive.ObjectID]*models.CascadeLog)}
}

func (m *MemCascadeLogs) Start(_ context.Context, entityID primitive.ObjectID, action string) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := &models.CascadeLog{
		ID:        primitive.NewObjectID(),
		EntityID:  entityID,
		Action:    action,
		Status:    models.CascadeRunning,
		StartedAt: time.Now().UTC(),
	}
	m.entries[entry.ID] = entry
	return entry.ID
}

func (m *MemCascadeLogs) StepDone(_ context.Context, logID primitive.ObjectID, step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[logID]; ok {
		e.Steps = append(e.Steps, models.CascadeStep{Name: step, At: time.Now().UTC()})
	}
}

func (m *MemCascadeLogs) Complete(_ context.Context, logID primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[logID]; ok {
		now := time.Now().UTC()
		e.Status = models.CascadeComplete
		e.FinishedAt = &now
	}
}

func (m *MemCascadeLogs) Fail(_ context.Context, logID primitive.ObjectID, step string, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[logID]; ok {
		now := time.Now().UTC()
		e.Status = models.CascadeFailed
		e.FailedStep = step
		e.Error = cause.Error()
		e.FinishedAt = &now
	}
}

// AddEntry seeds a log entry directly, for sweep tests that need backdated
// cascades.
func (m *MemCascadeLogs) AddEntry(e models.CascadeLog) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now().UTC()
	}
	m.entries[e.ID] = &e
	return e.ID
}

func (m *MemCascadeLogs) ListUnfinished(_ context.Context, before time.Time) ([]models.CascadeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CascadeLog
	for _, e := range m.entries {
		if e.Status != models.CascadeRunning && e.Status != models.CascadeFailed {
			continue
		}
		if !e.StartedAt.Before(before) {
			continue
		}
		out = append(out, *e)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StartedAt.Before(out[j-1].StartedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// ByEntity returns copies of the log entries for one entity, oldest first.
func (m *MemCascadeLogs) ByEntity(entityID primitive.ObjectID) []models.CascadeLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CascadeLog
	for _, e := range m.entries {
		if e.EntityID == entityID {
			out = append(out, *e)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StartedAt.Before(out[j-1].StartedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
