package calendar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fleetcal/backend/internal/storage/models"
)

// ErrSyncInProgress is returned when another sync currently holds the claim
// on the same feed.
var ErrSyncInProgress = errors.New("sync already in progress for this feed")

// claimStaleAfter is how long a sync claim may be held before an overlapping
// trigger is allowed to take it over (covers crashed or killed invocations).
const claimStaleAfter = 10 * time.Minute

// FeedStore is the persistence surface the sync service needs for calendar
// feed configuration and status.
type FeedStore interface {
	GetByID(ctx context.Context, id string) (*models.CalendarFeed, error)
	Upsert(ctx context.Context, feed *models.CalendarFeed) error
	ListActive(ctx context.Context) ([]models.CalendarFeed, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]models.CalendarFeed, error)
	RecordSuccess(ctx context.Context, id string, eventCount int) error
	RecordFailure(ctx context.Context, id string, message string) error
	ClaimSync(ctx context.Context, id string, staleAfter time.Duration) (bool, error)
	ReleaseSync(ctx context.Context, id string) error
}

// BookingStore is the persistence surface for imported bookings.
type BookingStore interface {
	ReplaceImported(ctx context.Context, accountID, vehicleID, feedURL string, bookings []models.Booking) error
}

// VehicleStore checks vehicle ownership before feed operations.
type VehicleStore interface {
	GetOwned(ctx context.Context, accountID, vehicleID string) (*models.Vehicle, error)
}

// SyncService reconciles internal bookings against external calendar feeds.
// The storage handles are injected once at construction and shared across
// all sync invocations.
type SyncService struct {
	feeds    FeedStore
	bookings BookingStore
	vehicles VehicleStore
	parser   *Parser

	// now is swappable for tests.
	now func() time.Time
}

// NewSyncService creates a new calendar sync service.
func NewSyncService(feeds FeedStore, bookings BookingStore, vehicles VehicleStore) *SyncService {
	return &SyncService{
		feeds:    feeds,
		bookings: bookings,
		vehicles: vehicles,
		parser:   NewParser(),
		now:      time.Now,
	}
}

// ImportFeed registers a feed for a vehicle (or refreshes it if the
// (vehicle, URL) pair already exists) and runs an immediate sync.
func (s *SyncService) ImportFeed(ctx context.Context, accountID, vehicleID, url, sourceLabel string) (*models.FeedSyncResult, error) {
	vehicle, err := s.vehicles.GetOwned(ctx, accountID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("checking vehicle: %w", err)
	}
	if vehicle == nil {
		return nil, fmt.Errorf("vehicle not found: %s", vehicleID)
	}

	if sourceLabel == "" {
		sourceLabel = "External Calendar"
	}

	feed := &models.CalendarFeed{
		AccountID: accountID,
		VehicleID: vehicleID,
		URL:       url,
		Source:    sourceLabel,
		Active:    true,
	}
	if err := s.feeds.Upsert(ctx, feed); err != nil {
		return nil, err
	}

	return s.SyncFeed(ctx, feed)
}

// SyncFeedByID syncs one existing feed, verifying the caller owns it.
func (s *SyncService) SyncFeedByID(ctx context.Context, accountID, feedID string) (*models.FeedSyncResult, error) {
	feed, err := s.feeds.GetByID(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("getting feed: %w", err)
	}
	if feed == nil || feed.AccountID != accountID {
		return nil, fmt.Errorf("feed not found: %s", feedID)
	}

	return s.SyncFeed(ctx, feed)
}

// SyncFeed runs one sync attempt for a feed: fetch, parse, filter to
// future-relevant events, replace the prior import, and record the outcome
// on the feed row. A fetch failure records last_error and leaves existing
// bookings untouched.
func (s *SyncService) SyncFeed(ctx context.Context, feed *models.CalendarFeed) (*models.FeedSyncResult, error) {
	result := &models.FeedSyncResult{
		FeedID:    feed.ID,
		VehicleID: feed.VehicleID,
		Source:    feed.Source,
		SyncedAt:  s.now().UTC(),
	}

	// Overlapping triggers for the same feed serialize here: the loser
	// returns instead of racing the winner's delete-then-insert.
	claimed, err := s.feeds.ClaimSync(ctx, feed.ID, claimStaleAfter)
	if err != nil {
		result.Error = err
		return result, err
	}
	if !claimed {
		result.Error = ErrSyncInProgress
		return result, ErrSyncInProgress
	}
	defer func() {
		if err := s.feeds.ReleaseSync(ctx, feed.ID); err != nil {
			log.Printf("Failed to release sync claim for feed %s: %v", feed.ID, err)
		}
	}()

	attempt := newSyncAttempt()
	attempt.advance(ctx, EventFetch)

	events, dropped, err := s.parser.FetchAndParse(feed.URL)
	if err != nil {
		attempt.advance(ctx, EventFailFetch)
		s.recordFailure(ctx, feed.ID, err)
		result.Error = err
		return result, err
	}
	attempt.advance(ctx, EventParse)

	result.TotalParsed = len(events)
	result.Dropped = dropped

	attempt.advance(ctx, EventFilter)
	events = FilterFutureEvents(events, s.now().UTC())

	attempt.advance(ctx, EventReplace)
	bookings := make([]models.Booking, 0, len(events))
	for _, e := range events {
		bookings = append(bookings, models.Booking{
			CustomerName: e.Summary,
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			Status:       models.BookingStatusConfirmed,
			Notes:        "Imported from " + feed.Source,
		})
	}

	if err := s.bookings.ReplaceImported(ctx, feed.AccountID, feed.VehicleID, feed.URL, bookings); err != nil {
		attempt.advance(ctx, EventFailSync)
		s.recordFailure(ctx, feed.ID, err)
		result.Error = err
		return result, err
	}

	attempt.advance(ctx, EventRecord)
	if err := s.feeds.RecordSuccess(ctx, feed.ID, len(bookings)); err != nil {
		log.Printf("Failed to record sync success for feed %s: %v", feed.ID, err)
	}

	result.Imported = len(bookings)
	log.Printf("Synced feed %s (%s): %d parsed, %d imported, %d dropped, final state %s",
		feed.ID, feed.Source, result.TotalParsed, result.Imported, result.Dropped, attempt.state())

	return result, nil
}

// SyncAccount syncs all of an account's active feeds sequentially. One
// feed's failure never blocks the others; each outcome is reported in the
// returned slice.
func (s *SyncService) SyncAccount(ctx context.Context, accountID string) ([]models.FeedSyncResult, error) {
	feeds, err := s.feeds.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing account feeds: %w", err)
	}
	return s.syncAll(ctx, feeds), nil
}

// SyncAll syncs every active feed across all accounts. Used by the
// scheduler.
func (s *SyncService) SyncAll(ctx context.Context) ([]models.FeedSyncResult, error) {
	feeds, err := s.feeds.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active feeds: %w", err)
	}
	return s.syncAll(ctx, feeds), nil
}

func (s *SyncService) syncAll(ctx context.Context, feeds []models.CalendarFeed) []models.FeedSyncResult {
	var results []models.FeedSyncResult
	for i := range feeds {
		result, err := s.SyncFeed(ctx, &feeds[i])
		if err != nil {
			log.Printf("Error syncing feed %s (%s): %v", feeds[i].ID, feeds[i].Source, err)
		}
		results = append(results, *result)
	}
	return results
}

func (s *SyncService) recordFailure(ctx context.Context, feedID string, cause error) {
	if err := s.feeds.RecordFailure(ctx, feedID, cause.Error()); err != nil {
		log.Printf("Failed to record sync failure for feed %s: %v", feedID, err)
	}
}
