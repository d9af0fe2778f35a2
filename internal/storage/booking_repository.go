package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fleetcal/backend/internal/storage/models"
)

// BookingRepository provides data access for bookings, both manually
// entered and imported from calendar feeds.
type BookingRepository struct {
	BaseRepository
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const bookingColumns = `id, account_id, vehicle_id, customer_name, customer_email,
	start_date, end_date, status, source, total_amount, deposit_amount, notes,
	created_at, updated_at`

// Create inserts a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	b.ID = GenerateID()
	b.CreatedAt = r.Now()
	b.UpdatedAt = r.Now()
	if b.Source == "" {
		b.Source = models.BookingSourceManual
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.AccountID, b.VehicleID, b.CustomerName, b.CustomerEmail,
		b.StartDate, b.EndDate, b.Status, b.Source, b.TotalAmount,
		b.DepositAmount, b.Notes, b.CreatedAt, b.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	return nil
}

// ListByVehicle retrieves all bookings for a vehicle, ordered by start date.
func (r *BookingRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE vehicle_id = ?
		ORDER BY start_date
	`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ListForExport retrieves the bookings that appear in a vehicle's exported
// calendar: confirmed, pending, and active ones.
func (r *BookingRepository) ListForExport(ctx context.Context, vehicleID string) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE vehicle_id = ? AND status IN (?, ?, ?)
		ORDER BY start_date
	`, vehicleID, models.BookingStatusConfirmed, models.BookingStatusPending, models.BookingStatusActive)
	if err != nil {
		return nil, fmt.Errorf("querying bookings for export: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ListImported retrieves the bookings imported from the given feed URL.
func (r *BookingRepository) ListImported(ctx context.Context, vehicleID, feedURL string) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE vehicle_id = ? AND source = ?
		ORDER BY start_date
	`, vehicleID, models.ImportSource(feedURL))
	if err != nil {
		return nil, fmt.Errorf("querying imported bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ReplaceImported atomically replaces every booking imported from feedURL
// with the given set. Runs in a single transaction so a failed insert can
// never leave the feed with its prior rows deleted.
func (r *BookingRepository) ReplaceImported(ctx context.Context, accountID, vehicleID, feedURL string, bookings []models.Booking) error {
	source := models.ImportSource(feedURL)
	now := r.Now()

	return r.Transaction(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM bookings WHERE vehicle_id = ? AND source = ?
		`, vehicleID, source)
		if err != nil {
			return fmt.Errorf("deleting imported bookings: %w", err)
		}

		for i := range bookings {
			b := &bookings[i]
			b.ID = GenerateID()
			b.AccountID = accountID
			b.VehicleID = vehicleID
			b.Source = source
			b.CreatedAt = now
			b.UpdatedAt = now

			_, err := tx.ExecContext(ctx, `
				INSERT INTO bookings (`+bookingColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				b.ID, b.AccountID, b.VehicleID, b.CustomerName, b.CustomerEmail,
				b.StartDate, b.EndDate, b.Status, b.Source, b.TotalAmount,
				b.DepositAmount, b.Notes, b.CreatedAt, b.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("inserting imported booking: %w", err)
			}
		}

		return nil
	})
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.AccountID, &b.VehicleID, &b.CustomerName, &b.CustomerEmail,
			&b.StartDate, &b.EndDate, &b.Status, &b.Source, &b.TotalAmount,
			&b.DepositAmount, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
