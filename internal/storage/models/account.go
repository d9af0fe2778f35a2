// Package models contains the domain models for the application.
package models

import (
	"time"
)

// Account represents a tenant: one rental business with its own vehicles,
// bookings, and calendar feeds.
type Account struct {
	ID           string    `json:"id"`
	BusinessName string    `json:"business_name"`
	Email        string    `json:"email"`
	APIKey       string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
