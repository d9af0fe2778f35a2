package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fleetcal/backend/internal/storage/models"
)

// FeedRepository provides data access for calendar feed configurations.
type FeedRepository struct {
	BaseRepository
}

// NewFeedRepository creates a new calendar feed repository.
func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const feedColumns = `id, account_id, vehicle_id, url, source, active,
	last_synced_at, event_count, last_error, created_at, updated_at`

// Upsert creates the feed row for (vehicle, url) or refreshes its label and
// active flag when it already exists. The UNIQUE(vehicle_id, url) index makes
// concurrent first-time imports of the same feed converge on one row.
func (r *FeedRepository) Upsert(ctx context.Context, feed *models.CalendarFeed) error {
	if feed.ID == "" {
		feed.ID = GenerateID()
	}
	feed.CreatedAt = r.Now()
	feed.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO calendar_feeds (id, account_id, vehicle_id, url, source, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(vehicle_id, url) DO UPDATE SET
			source = excluded.source,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, feed.ID, feed.AccountID, feed.VehicleID, feed.URL, feed.Source, feed.Active, feed.CreatedAt, feed.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upserting calendar feed: %w", err)
	}

	// The conflict path keeps the existing row's ID; re-read it.
	existing, err := r.GetByVehicleAndURL(ctx, feed.VehicleID, feed.URL)
	if err != nil {
		return err
	}
	if existing != nil {
		*feed = *existing
	}

	return nil
}

// GetByID retrieves a feed by its ID. Returns nil when not found.
func (r *FeedRepository) GetByID(ctx context.Context, id string) (*models.CalendarFeed, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByVehicleAndURL retrieves the feed for a (vehicle, url) pair.
func (r *FeedRepository) GetByVehicleAndURL(ctx context.Context, vehicleID, url string) (*models.CalendarFeed, error) {
	return r.getOne(ctx, "vehicle_id = ? AND url = ?", vehicleID, url)
}

func (r *FeedRepository) getOne(ctx context.Context, where string, args ...any) (*models.CalendarFeed, error) {
	feed := &models.CalendarFeed{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT `+feedColumns+` FROM calendar_feeds WHERE `+where, args...).Scan(
		&feed.ID, &feed.AccountID, &feed.VehicleID, &feed.URL, &feed.Source,
		&feed.Active, &feed.LastSyncedAt, &feed.EventCount, &feed.LastError,
		&feed.CreatedAt, &feed.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying calendar feed: %w", err)
	}

	return feed, nil
}

// ListByAccount retrieves all feeds configured by an account.
func (r *FeedRepository) ListByAccount(ctx context.Context, accountID string) ([]models.CalendarFeed, error) {
	return r.list(ctx, "account_id = ?", accountID)
}

// ListActiveByAccount retrieves the account's feeds eligible for syncing.
func (r *FeedRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]models.CalendarFeed, error) {
	return r.list(ctx, "account_id = ? AND active = 1", accountID)
}

// ListActive retrieves every active feed across all accounts, oldest sync
// first so the scheduler catches up the most stale feeds before fresh ones.
func (r *FeedRepository) ListActive(ctx context.Context) ([]models.CalendarFeed, error) {
	return r.list(ctx, "active = 1")
}

func (r *FeedRepository) list(ctx context.Context, where string, args ...any) ([]models.CalendarFeed, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+feedColumns+`
		FROM calendar_feeds
		WHERE `+where+`
		ORDER BY last_synced_at ASC NULLS FIRST
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying calendar feeds: %w", err)
	}
	defer rows.Close()

	var feeds []models.CalendarFeed
	for rows.Next() {
		var feed models.CalendarFeed
		if err := rows.Scan(
			&feed.ID, &feed.AccountID, &feed.VehicleID, &feed.URL, &feed.Source,
			&feed.Active, &feed.LastSyncedAt, &feed.EventCount, &feed.LastError,
			&feed.CreatedAt, &feed.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning calendar feed: %w", err)
		}
		feeds = append(feeds, feed)
	}

	return feeds, rows.Err()
}

// RecordSuccess marks a successful sync: timestamps it, stores the imported
// event count, and clears any prior error.
func (r *FeedRepository) RecordSuccess(ctx context.Context, id string, eventCount int) error {
	now := r.Now()

	_, err := r.DB().ExecContext(ctx, `
		UPDATE calendar_feeds SET
			last_synced_at = ?, event_count = ?, last_error = NULL, updated_at = ?
		WHERE id = ?
	`, now, eventCount, now, id)

	if err != nil {
		return fmt.Errorf("recording sync success: %w", err)
	}

	return nil
}

// RecordFailure stores the error from a failed sync attempt. The previous
// last_synced_at and event_count are left untouched.
func (r *FeedRepository) RecordFailure(ctx context.Context, id string, message string) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE calendar_feeds SET last_error = ?, updated_at = ?
		WHERE id = ?
	`, message, r.Now(), id)

	if err != nil {
		return fmt.Errorf("recording sync failure: %w", err)
	}

	return nil
}

// ClaimSync attempts to mark the feed as sync-in-progress. Returns false when
// another sync currently holds the claim. Claims older than staleAfter are
// treated as abandoned and can be taken over.
func (r *FeedRepository) ClaimSync(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	now := r.Now()
	cutoff := now.Add(-staleAfter)

	result, err := r.DB().ExecContext(ctx, `
		UPDATE calendar_feeds SET sync_in_progress = 1, sync_started_at = ?
		WHERE id = ? AND (sync_in_progress = 0 OR sync_started_at < ?)
	`, now, id, cutoff)
	if err != nil {
		return false, fmt.Errorf("claiming sync: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming sync: %w", err)
	}

	return affected == 1, nil
}

// ReleaseSync clears the sync-in-progress claim.
func (r *FeedRepository) ReleaseSync(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE calendar_feeds SET sync_in_progress = 0, sync_started_at = NULL
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("releasing sync: %w", err)
	}

	return nil
}
