package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fleetcal/backend/internal/api/middleware"
	"github.com/fleetcal/backend/internal/calendar"
	"github.com/fleetcal/backend/internal/storage"
)

// ExportCalendar serves a vehicle's booking calendar as a downloadable .ics
// document. Authentication uses a ?token= query parameter rather than a
// bearer header because calendar client software cannot set custom headers.
func ExportCalendar(accounts *storage.AccountRepository, vehicles *storage.VehicleRepository, bookings *storage.BookingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := r.URL.Query().Get("token")
		if token == "" {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Missing token")
			return
		}

		acct, err := accounts.GetByAPIKey(ctx, token)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to authenticate")
			return
		}
		if acct == nil {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid token")
			return
		}

		vehicleID := mux.Vars(r)["vehicleId"]
		vehicle, err := vehicles.GetOwned(ctx, acct.ID, vehicleID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vehicle")
			return
		}
		if vehicle == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Vehicle not found")
			return
		}

		list, err := bookings.ListForExport(ctx, vehicle.ID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query bookings")
			return
		}

		document := calendar.Generate(vehicle, list, time.Now())
		filename := calendar.ExportFilename(vehicle.DisplayName())

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Write([]byte(document))
	}
}
