package websocket

import (
	"log"

	"github.com/fleetcal/backend/internal/storage/models"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastFeedSyncCompleted sends a feed sync completed event.
func (b *EventBroadcaster) BroadcastFeedSyncCompleted(result models.FeedSyncResult) {
	payload := FeedSyncPayload{
		FeedID:      result.FeedID,
		VehicleID:   result.VehicleID,
		Source:      result.Source,
		Status:      "success",
		TotalParsed: result.TotalParsed,
		Imported:    result.Imported,
		Dropped:     result.Dropped,
	}

	if result.Error != nil {
		payload.Status = "error"
	}

	b.broadcast(NewMessage(TypeFeedSyncCompleted, payload))
}

// BroadcastFeedSyncError sends a feed sync error event.
func (b *EventBroadcaster) BroadcastFeedSyncError(feedID, source string, err error) {
	payload := FeedSyncErrorPayload{
		FeedID:  feedID,
		Source:  source,
		Error:   "sync_error",
		Message: err.Error(),
	}

	b.broadcast(NewMessage(TypeFeedSyncError, payload))
}

// BroadcastBookingCreated sends a booking created event.
func (b *EventBroadcaster) BroadcastBookingCreated(booking *models.Booking) {
	payload := BookingPayload{
		BookingID:    booking.ID,
		VehicleID:    booking.VehicleID,
		CustomerName: booking.CustomerName,
		StartDate:    booking.StartDate,
		EndDate:      booking.EndDate,
		Source:       booking.Source,
	}

	b.broadcast(NewMessage(TypeBookingCreated, payload))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}

	b.broadcast(NewMessage(TypeNotification, payload))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}
	b.hub.Broadcast(data)
}
