package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetcal/backend/internal/api/middleware"
	"github.com/fleetcal/backend/internal/calendar"
	"github.com/fleetcal/backend/internal/storage"
	"github.com/fleetcal/backend/internal/storage/models"
	"github.com/fleetcal/backend/internal/websocket"
)

// ImportCalendarRequest is the body for POST /api/calendar/import.
type ImportCalendarRequest struct {
	URL       string `json:"url"`
	VehicleID string `json:"vehicleId"`
	Source    string `json:"source,omitempty"`
}

// ImportCalendarResponse is the result of an immediate feed import.
type ImportCalendarResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Events      int    `json:"events"`
	TotalParsed int    `json:"total_parsed"`
}

// FeedSyncResponse reports the outcome of one feed within a sync request.
type FeedSyncResponse struct {
	VehicleID string `json:"vehicleId"`
	Source    string `json:"source"`
	Success   bool   `json:"success"`
	Events    int    `json:"events,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ImportCalendar registers an external feed for a vehicle and syncs it
// immediately.
func ImportCalendar(syncService *calendar.SyncService, hub *websocket.Hub) http.HandlerFunc {
	broadcaster := websocket.NewEventBroadcaster(hub)

	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middleware.AccountID(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Not authenticated")
			return
		}

		var req ImportCalendarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.URL == "" || req.VehicleID == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "url and vehicleId are required")
			return
		}

		result, err := syncService.ImportFeed(r.Context(), accountID, req.VehicleID, req.URL, req.Source)
		if err != nil {
			if result == nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
				return
			}
			broadcaster.BroadcastFeedSyncError(result.FeedID, result.Source, err)
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrInternalError, err.Error())
			return
		}

		broadcaster.BroadcastFeedSyncCompleted(*result)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ImportCalendarResponse{
			Success:     true,
			Message:     "Calendar imported",
			Events:      result.Imported,
			TotalParsed: result.TotalParsed,
		})
	}
}

// SyncAllFeeds syncs every active feed belonging to the authenticated
// account, sequentially, reporting each feed's outcome.
func SyncAllFeeds(syncService *calendar.SyncService, hub *websocket.Hub) http.HandlerFunc {
	broadcaster := websocket.NewEventBroadcaster(hub)

	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middleware.AccountID(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Not authenticated")
			return
		}

		results, err := syncService.SyncAccount(r.Context(), accountID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to list calendar feeds")
			return
		}

		writeSyncResults(w, broadcaster, results)
	}
}

// SyncFeed syncs one existing feed by ID.
func SyncFeed(syncService *calendar.SyncService, hub *websocket.Hub) http.HandlerFunc {
	broadcaster := websocket.NewEventBroadcaster(hub)

	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middleware.AccountID(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Not authenticated")
			return
		}

		feedID := mux.Vars(r)["id"]

		result, err := syncService.SyncFeedByID(r.Context(), accountID, feedID)
		if err != nil && result == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, err.Error())
			return
		}
		if errors.Is(err, calendar.ErrSyncInProgress) {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, err.Error())
			return
		}

		writeSyncResults(w, broadcaster, []models.FeedSyncResult{*result})
	}
}

func writeSyncResults(w http.ResponseWriter, broadcaster *websocket.EventBroadcaster, results []models.FeedSyncResult) {
	responses := make([]FeedSyncResponse, 0, len(results))
	for i := range results {
		r := &results[i]
		resp := FeedSyncResponse{
			VehicleID: r.VehicleID,
			Source:    r.Source,
			Success:   r.Error == nil,
			Events:    r.Imported,
		}
		if r.Error != nil {
			resp.Error = r.Error.Error()
			broadcaster.BroadcastFeedSyncError(r.FeedID, r.Source, r.Error)
		} else {
			broadcaster.BroadcastFeedSyncCompleted(*r)
		}
		responses = append(responses, resp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// ListFeeds returns the account's feed configurations with their sync
// status fields, letting the dashboard distinguish never-synced,
// synced-at-T, and last-attempt-failed feeds.
func ListFeeds(feeds *storage.FeedRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := middleware.AccountID(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Not authenticated")
			return
		}

		list, err := feeds.ListByAccount(r.Context(), accountID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query calendar feeds")
			return
		}

		if list == nil {
			list = []models.CalendarFeed{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}
