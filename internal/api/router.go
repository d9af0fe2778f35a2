// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"github.com/gorilla/mux"

	"github.com/fleetcal/backend/internal/api/handlers"
	"github.com/fleetcal/backend/internal/api/middleware"
	"github.com/fleetcal/backend/internal/calendar"
	"github.com/fleetcal/backend/internal/storage"
	"github.com/fleetcal/backend/internal/websocket"
)

// Repositories bundles the data access layers the router wires into
// handlers.
type Repositories struct {
	Accounts *storage.AccountRepository
	Vehicles *storage.VehicleRepository
	Bookings *storage.BookingRepository
	Feeds    *storage.FeedRepository
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(
	db *storage.DB,
	repos Repositories,
	hub *websocket.Hub,
	syncService *calendar.SyncService,
) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(db)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(db, hub)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(hub)).Methods("GET")

	// Calendar export is token-in-query authenticated: calendar clients
	// cannot set Authorization headers.
	api.HandleFunc("/calendar/export/{vehicleId}",
		handlers.ExportCalendar(repos.Accounts, repos.Vehicles, repos.Bookings)).Methods("GET")

	// Everything below requires a bearer API key.
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.RequireAuth(repos.Accounts))

	// Calendar feed endpoints
	authed.HandleFunc("/calendar/import", handlers.ImportCalendar(syncService, hub)).Methods("POST")
	authed.HandleFunc("/calendar/sync", handlers.SyncAllFeeds(syncService, hub)).Methods("GET", "POST")
	authed.HandleFunc("/calendar/sync/{id}", handlers.SyncFeed(syncService, hub)).Methods("POST")
	authed.HandleFunc("/calendar/feeds", handlers.ListFeeds(repos.Feeds)).Methods("GET")

	// Vehicle endpoints
	authed.HandleFunc("/vehicles", handlers.ListVehicles(repos.Vehicles)).Methods("GET")
	authed.HandleFunc("/vehicles", handlers.CreateVehicle(repos.Vehicles)).Methods("POST")
	authed.HandleFunc("/vehicles/{id}", handlers.GetVehicle(repos.Vehicles)).Methods("GET")
	authed.HandleFunc("/vehicles/{id}/bookings", handlers.ListBookings(repos.Vehicles, repos.Bookings)).Methods("GET")
	authed.HandleFunc("/vehicles/{id}/bookings", handlers.CreateBooking(repos.Vehicles, repos.Bookings, hub)).Methods("POST")

	return r
}
