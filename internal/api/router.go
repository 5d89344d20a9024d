package api

import (
	"github.com/gorilla/mux"

	"github.com/babylog/babylog/internal/api/recovery"
	"github.com/babylog/babylog/internal/config"
	"github.com/babylog/babylog/internal/services"
	"github.com/babylog/babylog/internal/store"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, st store.EventStore) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	svc := services.NewEventService(st)
	healthHandler := NewHealthHandler()
	eventHandler := NewEventHandler(svc, cfg.ResetEnabled)

	// Health stays outside the authenticated subtree so probes work
	// without credentials.
	router.HandleFunc("/v1/health", healthHandler.CheckHealth).Methods("GET")

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.Use(APIKeyMiddleware(cfg.APIKey))

	// Generic event endpoints
	v1.HandleFunc("/events", eventHandler.CreateEvent).Methods("POST")
	v1.HandleFunc("/events", eventHandler.ListEvents).Methods("GET")
	v1.HandleFunc("/events/{id}", eventHandler.GetEvent).Methods("GET")
	v1.HandleFunc("/events/{id}", eventHandler.UpdateEvent).Methods("PATCH")
	v1.HandleFunc("/events/{id}", eventHandler.DeleteEvent).Methods("DELETE")

	// Typed shortcuts
	v1.HandleFunc("/event/{type}", eventHandler.CreateTypedEvent).Methods("POST")
	v1.HandleFunc("/event/{type}/last", eventHandler.GetLastByType).Methods("GET")
	v1.HandleFunc("/event/{type}/last", eventHandler.DeleteLastByType).Methods("DELETE")

	// Stats
	v1.HandleFunc("/stats/events", eventHandler.GetStats).Methods("GET")

	// Admin
	v1.HandleFunc("/admin/reset", eventHandler.AdminReset).Methods("POST")

	return router
}
