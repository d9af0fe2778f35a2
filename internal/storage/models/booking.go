package models

import (
	"strings"
	"time"
)

// Booking statuses. Imported bookings are always created as confirmed.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusActive    = "active"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// BookingSourceManual marks bookings entered directly by the tenant.
const BookingSourceManual = "manual"

// ImportSourcePrefix tags bookings created from an external calendar feed.
// The full source value is "ical:<feed URL>", which doubles as the join key
// between a feed and its imported rows.
const ImportSourcePrefix = "ical:"

// Booking represents a reservation of a vehicle for an inclusive date range.
// Dates are civil dates in YYYY-MM-DD form; bookings block whole days.
type Booking struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	VehicleID     string    `json:"vehicle_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Status        string    `json:"status"`
	Source        string    `json:"source"`
	TotalAmount   int64     `json:"total_amount"`
	DepositAmount int64     `json:"deposit_amount"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ImportSource builds the source tag for bookings imported from feedURL.
func ImportSource(feedURL string) string {
	return ImportSourcePrefix + feedURL
}

// IsImported reports whether the booking came from an external feed.
func (b *Booking) IsImported() bool {
	return strings.HasPrefix(b.Source, ImportSourcePrefix)
}
