package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tripplan/tripplan-api/internal/authz"
	"github.com/tripplan/tripplan-api/internal/handlers"
	"github.com/tripplan/tripplan-api/internal/middleware"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Trip       *handlers.TripHandler
	SharedTrip *handlers.SharedTripHandler
	History    *handlers.HistoryHandler
}

// NewRouter sets up the API routes
func NewRouter(h Handlers, metrics *middleware.Metrics) *mux.Router {
	router := mux.NewRouter()
	router.Use(metrics.Middleware)

	router.HandleFunc("/health", h.Health.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", h.Auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", h.Auth.Login).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.Auth.JWTMiddleware, authz.RequireUser)

	api.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)
	api.HandleFunc("/trips", h.Trip.List).Methods(http.MethodGet)
	api.HandleFunc("/trips", h.Trip.Create).Methods(http.MethodPost)
	api.HandleFunc("/trips/{tripID:[0-9]+}", h.Trip.Get).Methods(http.MethodGet)
	api.HandleFunc("/trips/{tripID:[0-9]+}", h.Trip.Update).Methods(http.MethodPut)
	api.HandleFunc("/trips/{tripID:[0-9]+}", h.Trip.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/trips/{tripID:[0-9]+}/invites", h.SharedTrip.ListTripInvites).Methods(http.MethodGet)
	api.HandleFunc("/trips/{tripID:[0-9]+}/invites/{inviteID:[0-9]+}", h.SharedTrip.RevokeInvite).Methods(http.MethodDelete)

	api.HandleFunc("/shared-trips", h.SharedTrip.CreateInvite).Methods(http.MethodPost)
	api.HandleFunc("/shared-trips/validate", h.SharedTrip.Validate).Methods(http.MethodPost)
	api.HandleFunc("/shared-trips/accept", h.SharedTrip.Accept).Methods(http.MethodPost)
	api.HandleFunc("/shared-trips/ids", h.SharedTrip.SharedTripIDs).Methods(http.MethodGet)

	api.HandleFunc("/history", h.History.Create).Methods(http.MethodPost)
	api.HandleFunc("/history/trip/{tripID:[0-9]+}", h.History.TripHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/count", h.History.Count).Methods(http.MethodGet)

	return router
}
