package models

import (
	"time"
)

// CalendarFeed represents one external iCal feed linked to a vehicle.
// At most one row exists per (vehicle, URL) pair.
type CalendarFeed struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	VehicleID    string     `json:"vehicle_id"`
	URL          string     `json:"url"`
	Source       string     `json:"source"`
	Active       bool       `json:"active"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	EventCount   int        `json:"event_count"`
	LastError    *string    `json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CalendarEvent represents a parsed event from an iCal feed. Dates are
// civil dates in YYYY-MM-DD form; EndDate is the last inclusive day of the
// stay (the feed's exclusive DTEND already adjusted).
type CalendarEvent struct {
	UID       string `json:"uid"`
	Summary   string `json:"summary"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// FeedSyncResult contains the outcome of one feed sync attempt.
type FeedSyncResult struct {
	FeedID      string    `json:"feed_id"`
	VehicleID   string    `json:"vehicle_id"`
	Source      string    `json:"source"`
	TotalParsed int       `json:"total_parsed"`
	Imported    int       `json:"imported"`
	Dropped     int       `json:"dropped"`
	Error       error     `json:"-"`
	SyncedAt    time.Time `json:"synced_at"`
}
