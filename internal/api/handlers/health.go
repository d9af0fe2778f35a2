// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fleetcal/backend/internal/storage"
	"github.com/fleetcal/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	VehiclesCount    int `json:"vehicles_count"`
	FeedsCount       int `json:"feeds_count"`
	BookingsCount    int `json:"bookings_count"`
	ConnectedClients int `json:"connected_clients"`
}

// Status returns a handler that provides system status information.
func Status(db *storage.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var response StatusResponse
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicles").Scan(&response.VehiclesCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calendar_feeds").Scan(&response.FeedsCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings").Scan(&response.BookingsCount)
		response.ConnectedClients = hub.ClientCount()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
