package models

import (
	"fmt"
	"strings"
	"time"
)

// Vehicle represents a rentable vehicle owned by an account.
type Vehicle struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	DailyRate int64     `json:"daily_rate"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the human-readable vehicle name used in calendar
// exports and the dashboard, e.g. "2022 Lamborghini Huracan".
func (v *Vehicle) DisplayName() string {
	if v.Year > 0 {
		return fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
	}
	return strings.TrimSpace(v.Make + " " + v.Model)
}
