// handlers/stores.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"assethub/approval"
	"assethub/store"
	"assethub/utils"
)

var (
	userStore        *store.Users
	assetStore       *store.Assets
	requestStore     *store.Requests
	assignmentStore  *store.Assignments
	affiliationStore *store.Affiliations
	paymentStore     *store.Payments
	cascadeStore     *store.CascadeLogs

	orchestrator *approval.Orchestrator
)

// InitStores wires the handlers to their collections and builds the decision
// orchestrator on top of them. Must run after database.Connect.
func InitStores(db *mongo.Database) {
	userStore = store.NewUsers(db)
	assetStore = store.NewAssets(db)
	requestStore = store.NewRequests(db)
	assignmentStore = store.NewAssignments(db)
	affiliationStore = store.NewAffiliations(db)
	paymentStore = store.NewPayments(db)
	cascadeStore = store.NewCascadeLogs(db)

	orchestrator = approval.New(userStore, assetStore, requestStore,
		assignmentStore, affiliationStore, cascadeStore)
}

// respondOpError maps an orchestrator error onto an HTTP status. Client-side
// refusals (missing entity, stale state, stock, seats) keep their message;
// anything else is an internal failure and only the log gets the cause.
func respondOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, approval.ErrInvalidDecision):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, approval.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, approval.ErrOutOfStock),
		errors.Is(err, approval.ErrSeatLimitExceeded),
		errors.Is(err, approval.ErrConflict):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		var cascadeErr *approval.CascadeError
		if errors.As(err, &cascadeErr) {
			// Partial cascades name their failed step so the client
			// knows what to reconcile before retrying.
			logrus.Errorf("cascade error: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		logrus.Errorf("operation failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Operation failed")
	}
}

// identity pulls the authenticated account out of the request context, as
// stashed by the auth middleware.
func identity(r *http.Request) (email, name, role string, ok bool) {
	email, ok1 := r.Context().Value("email").(string)
	name, _ = r.Context().Value("name").(string)
	role, ok2 := r.Context().Value("role").(string)
	return email, name, role, ok1 && ok2 && email != ""
}
