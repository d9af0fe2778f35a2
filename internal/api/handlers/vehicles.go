package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetcal/backend/internal/api/middleware"
	"github.com/fleetcal/backend/internal/storage"
	"github.com/fleetcal/backend/internal/storage/models"
)

// CreateVehicleRequest is the body for POST /api/vehicles.
type CreateVehicleRequest struct {
	Make      string `json:"make"`
	Model     string `json:"model"`
	Year      int    `json:"year"`
	DailyRate int64  `json:"daily_rate"`
}

// ListVehicles returns the account's vehicles.
func ListVehicles(vehicles *storage.VehicleRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middleware.AccountID(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Not authenticated")
			return
		}

		list, err := vehicles.ListByAccount(r.Context(), accountID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vehicles")
			return
		}

		if list == nil {
			list = []models.Vehicle{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// CreateVehicle adds a vehicle to the account's fleet.
func CreateVehicle(vehicles *storage.VehicleRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middleware.AccountID(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Not authenticated")
			return
		}

		var req CreateVehicleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Make == "" || req.Model == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "make and model are required")
			return
		}

		vehicle := &models.Vehicle{
			AccountID: accountID,
			Make:      req.Make,
			Model:     req.Model,
			Year:      req.Year,
			DailyRate: req.DailyRate,
			Active:    true,
		}

		if err := vehicles.Create(r.Context(), vehicle); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create vehicle")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(vehicle)
	}
}

// GetVehicle returns a single vehicle owned by the account.
func GetVehicle(vehicles *storage.VehicleRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middleware.AccountID(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Not authenticated")
			return
		}

		vehicle, err := vehicles.GetOwned(r.Context(), accountID, mux.Vars(r)["id"])
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vehicle")
			return
		}
		if vehicle == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Vehicle not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(vehicle)
	}
}
