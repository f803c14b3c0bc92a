package routes

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"assethub/handlers"
	"assethub/middleware"
	"assethub/websocket"
)

// HTTP method constants for better maintainability
var (
	MethodsGetOnly    = []string{"GET", "OPTIONS"}
	MethodsPostOnly   = []string{"POST", "OPTIONS"}
	MethodsPutOnly    = []string{"PUT", "OPTIONS"}
	MethodsPatchOnly  = []string{"PATCH", "OPTIONS"}
	MethodsDeleteOnly = []string{"DELETE", "OPTIONS"}
)

func RegisterRoutes(r *mux.Router) {
	// ====================
	// PUBLIC ROUTES
	// ====================
	r.HandleFunc("/health", handlers.HealthCheck).Methods(MethodsGetOnly...)

	r.HandleFunc("/api/auth/token", handlers.Login).Methods(MethodsPostOnly...)
	r.HandleFunc("/api/auth/validate", handlers.ValidateToken).Methods(MethodsGetOnly...)

	// Signup doubles as profile upsert, so it stays public
	r.HandleFunc("/api/users", handlers.UpsertUser).Methods(MethodsPutOnly...)

	// Live update feed; the token is checked in the handler
	r.HandleFunc("/ws/updates", websocket.ServeWS)

	// ====================
	// PROTECTED API ROUTES
	// ====================
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.AuthMiddleware)

	// Users
	apiRouter.HandleFunc("/users/me", handlers.GetCurrentUser).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/users/{email}", handlers.GetUserByEmail).Methods(MethodsGetOnly...)

	// Assets
	apiRouter.HandleFunc("/assets", handlers.ListAssets).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/assets", handlers.CreateAsset).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/assets/{id}", handlers.GetAsset).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/assets/{id}", handlers.UpdateAsset).Methods(MethodsPutOnly...)
	apiRouter.HandleFunc("/assets/{id}", handlers.DeleteAsset).Methods(MethodsDeleteOnly...)

	// Requests and decisions
	apiRouter.HandleFunc("/requests", handlers.ListRequests).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/requests", handlers.CreateRequest).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/requests/{id}/decision", handlers.DecideRequest).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/requests/{id}/return", handlers.ReturnRequest).Methods(MethodsPatchOnly...)

	// Assignments
	apiRouter.HandleFunc("/assignments", handlers.ListAssignments).Methods(MethodsGetOnly...)

	// Affiliations
	apiRouter.HandleFunc("/affiliations", handlers.ListAffiliations).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/affiliations/{id}", handlers.RemoveAffiliation).Methods(MethodsDeleteOnly...)

	// Payments
	apiRouter.HandleFunc("/payments", handlers.ListPayments).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/payments", handlers.CreatePayment).Methods(MethodsPostOnly...)

	// Debug: print all registered routes
	r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		if t, err := route.GetPathTemplate(); err == nil {
			methods, _ := route.GetMethods()
			logrus.Debugf("Route: %v %s", methods, t)
		}
		return nil
	})
}
