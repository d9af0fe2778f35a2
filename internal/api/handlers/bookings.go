package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fleetcal/backend/internal/api/middleware"
	"github.com/fleetcal/backend/internal/storage"
	"github.com/fleetcal/backend/internal/storage/models"
	"github.com/fleetcal/backend/internal/websocket"
)

// CreateBookingRequest is the body for POST /api/vehicles/{id}/bookings.
// Dates are inclusive YYYY-MM-DD.
type CreateBookingRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email,omitempty"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Status        string `json:"status,omitempty"`
	TotalAmount   int64  `json:"total_amount,omitempty"`
	DepositAmount int64  `json:"deposit_amount,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ListBookings returns a vehicle's bookings, manual and imported alike.
func ListBookings(vehicles *storage.VehicleRepository, bookings *storage.BookingRepository) http.HandlerFunc {
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

		list, err := bookings.ListByVehicle(r.Context(), vehicle.ID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query bookings")
			return
		}

		if list == nil {
			list = []models.Booking{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// CreateBooking records a manual booking for a vehicle.
func CreateBooking(vehicles *storage.VehicleRepository, bookings *storage.BookingRepository, hub *websocket.Hub) http.HandlerFunc {
	broadcaster := websocket.NewEventBroadcaster(hub)

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

		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if !validDate(req.StartDate) || !validDate(req.EndDate) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "start_date and end_date must be YYYY-MM-DD")
			return
		}
		if req.EndDate < req.StartDate {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "end_date must not precede start_date")
			return
		}

		status := req.Status
		if status == "" {
			status = models.BookingStatusPending
		}

		booking := &models.Booking{
			AccountID:     accountID,
			VehicleID:     vehicle.ID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			Status:        status,
			Source:        models.BookingSourceManual,
			TotalAmount:   req.TotalAmount,
			DepositAmount: req.DepositAmount,
			Notes:         req.Notes,
		}

		if err := bookings.Create(r.Context(), booking); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create booking")
			return
		}

		broadcaster.BroadcastBookingCreated(booking)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(booking)
	}
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
