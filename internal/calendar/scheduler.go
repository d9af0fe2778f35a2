package calendar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fleetcal/backend/internal/websocket"
)

// Scheduler runs the periodic feed sync batch. Feeds are processed
// sequentially within one run; syncs are not latency-sensitive, so the
// worst case of one slow remote delaying the batch is acceptable.
type Scheduler struct {
	cron        *cron.Cron
	syncService *SyncService
	broadcaster *websocket.EventBroadcaster
	interval    time.Duration
}

// NewScheduler creates a scheduler syncing all active feeds every
// intervalMin minutes (default 15).
func NewScheduler(syncService *SyncService, hub *websocket.Hub, intervalMin int) *Scheduler {
	if intervalMin <= 0 {
		intervalMin = 15
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Scheduler{
		cron:        cron.New(),
		syncService: syncService,
		broadcaster: broadcaster,
		interval:    time.Duration(intervalMin) * time.Minute,
	}
}

// Start begins the periodic sync job.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.runBatch); err != nil {
		return fmt.Errorf("scheduling sync job: %w", err)
	}

	s.cron.Start()
	log.Printf("Calendar sync scheduler started (every %s)", s.interval)
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running batch.
func (s *Scheduler) Stop() {
	log.Println("Stopping calendar sync scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Calendar sync scheduler stopped")
}

// runBatch syncs every active feed and broadcasts per-feed outcomes.
func (s *Scheduler) runBatch() {
	ctx := context.Background()

	results, err := s.syncService.SyncAll(ctx)
	if err != nil {
		log.Printf("Scheduled sync batch failed: %v", err)
		return
	}

	succeeded := 0
	for i := range results {
		r := &results[i]
		switch {
		case r.Error == nil:
			succeeded++
			if s.broadcaster != nil {
				s.broadcaster.BroadcastFeedSyncCompleted(*r)
			}
		case errors.Is(r.Error, ErrSyncInProgress):
			// A manual sync holds the claim; nothing to report.
		default:
			if s.broadcaster != nil {
				s.broadcaster.BroadcastFeedSyncError(r.FeedID, r.Source, r.Error)
			}
		}
	}

	log.Printf("Scheduled sync batch complete: %d/%d feeds succeeded", succeeded, len(results))
}
