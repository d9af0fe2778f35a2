package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeFeedSyncCompleted MessageType = "feed.sync_completed"
	TypeFeedSyncError     MessageType = "feed.sync_error"
	TypeBookingCreated    MessageType = "booking.created"
	TypeNotification      MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// FeedSyncPayload is the payload for feed.sync_completed events.
type FeedSyncPayload struct {
	FeedID      string `json:"feed_id"`
	VehicleID   string `json:"vehicle_id"`
	Source      string `json:"source"`
	Status      string `json:"status"`
	TotalParsed int    `json:"total_parsed"`
	Imported    int    `json:"imported"`
	Dropped     int    `json:"dropped"`
}

// FeedSyncErrorPayload is the payload for feed.sync_error events.
type FeedSyncErrorPayload struct {
	FeedID  string `json:"feed_id"`
	Source  string `json:"source"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// BookingPayload is the payload for booking.created events.
type BookingPayload struct {
	BookingID    string `json:"booking_id"`
	VehicleID    string `json:"vehicle_id"`
	CustomerName string `json:"customer_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Source       string `json:"source"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}
