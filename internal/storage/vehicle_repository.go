package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fleetcal/backend/internal/storage/models"
)

// VehicleRepository provides data access for vehicles.
type VehicleRepository struct {
	BaseRepository
}

// NewVehicleRepository creates a new vehicle repository.
func NewVehicleRepository(db *DB) *VehicleRepository {
	return &VehicleRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new vehicle.
func (r *VehicleRepository) Create(ctx context.Context, v *models.Vehicle) error {
	v.ID = GenerateID()
	v.CreatedAt = r.Now()
	v.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO vehicles (id, account_id, make, model, year, daily_rate, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.AccountID, v.Make, v.Model, v.Year, v.DailyRate, v.Active, v.CreatedAt, v.UpdatedAt)

	if err != nil {
		return fmt.Errorf("inserting vehicle: %w", err)
	}

	return nil
}

// GetByID retrieves a vehicle by its ID. Returns nil when not found.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*models.Vehicle, error) {
	v := &models.Vehicle{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, account_id, make, model, year, daily_rate, active, created_at, updated_at
		FROM vehicles WHERE id = ?
	`, id).Scan(
		&v.ID, &v.AccountID, &v.Make, &v.Model, &v.Year,
		&v.DailyRate, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying vehicle: %w", err)
	}

	return v, nil
}

// GetOwned retrieves a vehicle only if it belongs to the given account.
// Returns nil when the vehicle does not exist or is owned by someone else.
func (r *VehicleRepository) GetOwned(ctx context.Context, accountID, vehicleID string) (*models.Vehicle, error) {
	v, err := r.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if v == nil || v.AccountID != accountID {
		return nil, nil
	}
	return v, nil
}

// ListByAccount retrieves all vehicles owned by an account.
func (r *VehicleRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Vehicle, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, account_id, make, model, year, daily_rate, active, created_at, updated_at
		FROM vehicles
		WHERE account_id = ?
		ORDER BY make, model
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(
			&v.ID, &v.AccountID, &v.Make, &v.Model, &v.Year,
			&v.DailyRate, &v.Active, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}
