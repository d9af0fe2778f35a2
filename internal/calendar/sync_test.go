package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetcal/backend/internal/storage/models"
)

// fakeFeedStore is an in-memory FeedStore.
type fakeFeedStore struct {
	feeds   map[string]*models.CalendarFeed
	claimed map[string]bool
}

func newFakeFeedStore() *fakeFeedStore {
	return &fakeFeedStore{
		feeds:   make(map[string]*models.CalendarFeed),
		claimed: make(map[string]bool),
	}
}

func (s *fakeFeedStore) GetByID(ctx context.Context, id string) (*models.CalendarFeed, error) {
	if f, ok := s.feeds[id]; ok {
		copied := *f
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeFeedStore) Upsert(ctx context.Context, feed *models.CalendarFeed) error {
	for _, f := range s.feeds {
		if f.VehicleID == feed.VehicleID && f.URL == feed.URL {
			*feed = *f
			return nil
		}
	}
	if feed.ID == "" {
		feed.ID = fmt.Sprintf("feed-%d", len(s.feeds)+1)
	}
	copied := *feed
	s.feeds[feed.ID] = &copied
	return nil
}

func (s *fakeFeedStore) ListActive(ctx context.Context) ([]models.CalendarFeed, error) {
	var out []models.CalendarFeed
	for _, f := range s.feeds {
		if f.Active {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeFeedStore) ListActiveByAccount(ctx context.Context, accountID string) ([]models.CalendarFeed, error) {
	var out []models.CalendarFeed
	for _, f := range s.feeds {
		if f.Active && f.AccountID == accountID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeFeedStore) RecordSuccess(ctx context.Context, id string, eventCount int) error {
	f, ok := s.feeds[id]
	if !ok {
		return fmt.Errorf("feed not found: %s", id)
	}
	now := time.Now().UTC()
	f.LastSyncedAt = &now
	f.EventCount = eventCount
	f.LastError = nil
	return nil
}

func (s *fakeFeedStore) RecordFailure(ctx context.Context, id string, message string) error {
	f, ok := s.feeds[id]
	if !ok {
		return fmt.Errorf("feed not found: %s", id)
	}
	f.LastError = &message
	return nil
}

func (s *fakeFeedStore) ClaimSync(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	if s.claimed[id] {
		return false, nil
	}
	s.claimed[id] = true
	return true, nil
}

func (s *fakeFeedStore) ReleaseSync(ctx context.Context, id string) error {
	delete(s.claimed, id)
	return nil
}

// fakeBookingStore keeps imported bookings keyed by (vehicle, source).
type fakeBookingStore struct {
	rows    map[string][]models.Booking
	failing bool
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{rows: make(map[string][]models.Booking)}
}

func (s *fakeBookingStore) ReplaceImported(ctx context.Context, accountID, vehicleID, feedURL string, bookings []models.Booking) error {
	if s.failing {
		return errors.New("storage unavailable")
	}
	key := vehicleID + "|" + models.ImportSource(feedURL)
	for i := range bookings {
		bookings[i].ID = fmt.Sprintf("row-%d-%d", len(s.rows), i)
		bookings[i].AccountID = accountID
		bookings[i].VehicleID = vehicleID
		bookings[i].Source = models.ImportSource(feedURL)
	}
	s.rows[key] = bookings
	return nil
}

func (s *fakeBookingStore) imported(vehicleID, feedURL string) []models.Booking {
	return s.rows[vehicleID+"|"+models.ImportSource(feedURL)]
}

// fakeVehicleStore owns a single vehicle.
type fakeVehicleStore struct {
	vehicle *models.Vehicle
}

func (s *fakeVehicleStore) GetOwned(ctx context.Context, accountID, vehicleID string) (*models.Vehicle, error) {
	if s.vehicle != nil && s.vehicle.ID == vehicleID && s.vehicle.AccountID == accountID {
		return s.vehicle, nil
	}
	return nil, nil
}

func newTestService(feeds *fakeFeedStore, bookings *fakeBookingStore) *SyncService {
	svc := NewSyncService(feeds, bookings, &fakeVehicleStore{
		vehicle: &models.Vehicle{ID: "veh-1", AccountID: "acct-1", Make: "Ferrari", Model: "488"},
	})
	svc.now = func() time.Time {
		return time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	}
	return svc
}

func feedDocument(events ...string) string {
	doc := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n"
	for _, e := range events {
		doc += e
	}
	return doc + "END:VCALENDAR\r\n"
}

func vevent(uid, summary, start, end string) string {
	return "BEGIN:VEVENT\r\n" +
		"UID:" + uid + "\r\n" +
		"SUMMARY:" + summary + "\r\n" +
		"DTSTART;VALUE=DATE:" + start + "\r\n" +
		"DTEND;VALUE=DATE:" + end + "\r\n" +
		"END:VEVENT\r\n"
}

func TestImportFeedCreatesBookings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedDocument(
			vevent("evt-1", "Turo Guest", "20250110", "20250113"),
			vevent("evt-2", "Marketplace Hold", "20250201", "20250203"),
		))
	}))
	defer server.Close()

	feeds := newFakeFeedStore()
	bookings := newFakeBookingStore()
	svc := newTestService(feeds, bookings)

	result, err := svc.ImportFeed(context.Background(), "acct-1", "veh-1", server.URL, "Turo")
	if err != nil {
		t.Fatalf("ImportFeed() error = %v", err)
	}

	if result.TotalParsed != 2 {
		t.Errorf("TotalParsed = %d, want 2", result.TotalParsed)
	}
	if result.Imported != 2 {
		t.Errorf("Imported = %d, want 2", result.Imported)
	}

	rows := bookings.imported("veh-1", server.URL)
	if len(rows) != 2 {
		t.Fatalf("imported rows = %d, want 2", len(rows))
	}
	b := rows[0]
	if b.CustomerName != "Turo Guest" {
		t.Errorf("customer = %q, want %q", b.CustomerName, "Turo Guest")
	}
	if b.StartDate != "2025-01-10" || b.EndDate != "2025-01-12" {
		t.Errorf("dates = %q/%q, want 2025-01-10/2025-01-12", b.StartDate, b.EndDate)
	}
	if b.Status != models.BookingStatusConfirmed {
		t.Errorf("status = %q, want %q", b.Status, models.BookingStatusConfirmed)
	}
	if b.TotalAmount != 0 || b.DepositAmount != 0 {
		t.Errorf("amounts = %d/%d, want 0/0", b.TotalAmount, b.DepositAmount)
	}
	if b.Source != models.ImportSource(server.URL) {
		t.Errorf("source = %q, want %q", b.Source, models.ImportSource(server.URL))
	}
}

func TestImportFeedRejectsUnownedVehicle(t *testing.T) {
	feeds := newFakeFeedStore()
	bookings := newFakeBookingStore()
	svc := newTestService(feeds, bookings)

	_, err := svc.ImportFeed(context.Background(), "acct-2", "veh-1", "http://example.com/cal.ics", "")
	if err == nil {
		t.Fatal("ImportFeed() with foreign vehicle should fail")
	}
	if len(feeds.feeds) != 0 {
		t.Errorf("feed rows = %d, want 0 (no side effects)", len(feeds.feeds))
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedDocument(vevent("evt-1", "Guest", "20250110", "20250113")))
	}))
	defer server.Close()

	feeds := newFakeFeedStore()
	bookings := newFakeBookingStore()
	svc := newTestService(feeds, bookings)

	if _, err := svc.ImportFeed(context.Background(), "acct-1", "veh-1", server.URL, "Turo"); err != nil {
		t.Fatalf("first sync error = %v", err)
	}
	first := bookings.imported("veh-1", server.URL)

	if _, err := svc.ImportFeed(context.Background(), "acct-1", "veh-1", server.URL, "Turo"); err != nil {
		t.Fatalf("second sync error = %v", err)
	}
	second := bookings.imported("veh-1", server.URL)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("rows = %d then %d, want 1 and 1", len(first), len(second))
	}
	if first[0].StartDate != second[0].StartDate ||
		first[0].EndDate != second[0].EndDate ||
		first[0].CustomerName != second[0].CustomerName {
		t.Errorf("second sync changed booking contents: %+v vs %+v", first[0], second[0])
	}

	if len(feeds.feeds) != 1 {
		t.Errorf("feed rows = %d, want 1 (upsert, not duplicate)", len(feeds.feeds))
	}
}

func TestSyncReplacesDroppedEvents(t *testing.T) {
	serveSecond := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serveSecond {
			fmt.Fprint(w, feedDocument(vevent("evt-1", "Guest A", "20250110", "20250113")))
			return
		}
		fmt.Fprint(w, feedDocument(
			vevent("evt-1", "Guest A", "20250110", "20250113"),
			vevent("evt-2", "Guest B", "20250201", "20250203"),
		))
	}))
	defer server.Close()

	feeds := newFakeFeedStore()
	bookings := newFakeBookingStore()
	svc := newTestService(feeds, bookings)

	if _, err := svc.ImportFeed(context.Background(), "acct-1", "veh-1", server.URL, "Turo"); err != nil {
		t.Fatalf("first sync error = %v", err)
	}
	if got := len(bookings.imported("veh-1", server.URL)); got != 2 {
		t.Fatalf("rows after first sync = %d, want 2", got)
	}

	serveSecond = true
	if _, err := svc.ImportFeed(context.Background(), "acct-1", "veh-1", server.URL, "Turo"); err != nil {
		t.Fatalf("second sync error = %v", err)
	}

	rows := bookings.imported("veh-1", server.URL)
	if len(rows) != 1 {
		t.Fatalf("rows after second sync = %d, want 1 (full replacement, no stale leftovers)", len(rows))
	}
	if rows[0].CustomerName != "Guest A" {
		t.Errorf("remaining customer = %q, want %q", rows[0].CustomerName, "Guest A")
	}
}

func TestSyncFiltersPastEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedDocument(
			vevent("old", "Ancient Guest", "20240301", "20240305"),
			vevent("new", "Future Guest", "20250601", "20250605"),
		))
	}))
	defer server.Close()

	feeds := newFakeFeedStore()
	bookings := newFakeBookingStore()
	svc := newTestService(feeds, bookings) // now = 2025-01-01

	result, err := svc.ImportFeed(context.Background(), "acct-1", "veh-1", server.URL, "Turo")
	if err != nil {
		t.Fatalf("ImportFeed() error = %v", err)
	}

	if result.TotalParsed != 2 {
		t.Errorf("TotalParsed = %d, want 2", result.TotalParsed)
	}
	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1", result.Imported)
	}

	rows := bookings.imported("veh-1", server.URL)
	if len(rows) != 1 || rows[0].CustomerName != "Future Guest" {
		t.Errorf("rows = %+v, want only the future event", rows)
	}
}

func TestSyncFetchFailureRecordsErrorAndKeepsBookings(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, feedDocument(vevent("evt-1", "Guest", "20250110", "20250113")))
	}))
	defer server.Close()

	feeds := newFakeFeedStore()
	bookings := newFakeBookingStore()
	svc := newTestService(feeds, bookings)

	if _, err := svc.ImportFeed(context.Background(), "acct-1", "veh-1", server.URL, "Turo"); err != nil {
		t.Fatalf("first sync error = %v", err)
	}

	var feedID string
	for id := range feeds.feeds {
		feedID = id
	}
	syncedAt := feeds.feeds[feedID].LastSyncedAt
	if syncedAt == nil {
		t.Fatal("last_synced_at not set after successful sync")
	}

	healthy = false
	_, err := svc.SyncFeedByID(context.Background(), "acct-1", feedID)
	if err == nil {
		t.Fatal("sync against failing remote should error")
	}

	f := feeds.feeds[feedID]
	if f.LastError == nil {
		t.Fatal("last_error not recorded")
	}
	if f.LastSyncedAt != syncedAt {
		t.Error("last_synced_at changed on failed sync")
	}
	if got := len(bookings.imported("veh-1", server.URL)); got != 1 {
		t.Errorf("rows after failed sync = %d, want 1 (prior import untouched)", got)
	}
}

func TestSyncStorageFailureRecordsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedDocument(vevent("evt-1", "Guest", "20250110", "20250113")))
	}))
	defer server.Close()

	feeds := newFakeFeedStore()
	bookings := newFakeBookingStore()
	bookings.failing = true
	svc := newTestService(feeds, bookings)

	_, err := svc.ImportFeed(context.Background(), "acct-1", "veh-1", server.URL, "Turo")
	if err == nil {
		t.Fatal("sync with failing store should error")
	}

	for _, f := range feeds.feeds {
		if f.LastError == nil {
			t.Error("last_error not recorded after storage failure")
		}
	}
}

func TestSyncSerializesPerFeed(t *testing.T) {
	feeds := newFakeFeedStore()
	feed := &models.CalendarFeed{AccountID: "acct-1", VehicleID: "veh-1", URL: "http://example.com/cal.ics", Source: "Turo", Active: true}
	feeds.Upsert(context.Background(), feed)
	feeds.claimed[feed.ID] = true // another sync is mid-flight

	svc := newTestService(feeds, newFakeBookingStore())

	_, err := svc.SyncFeed(context.Background(), feed)
	if !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("err = %v, want ErrSyncInProgress", err)
	}
}

func TestSyncAccountContinuesPastFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedDocument(vevent("evt-1", "Guest", "20250110", "20250113")))
	}))
	defer server.Close()

	feeds := newFakeFeedStore()
	bookings := newFakeBookingStore()
	svc := newTestService(feeds, bookings)

	good := &models.CalendarFeed{AccountID: "acct-1", VehicleID: "veh-1", URL: server.URL, Source: "Good", Active: true}
	bad := &models.CalendarFeed{AccountID: "acct-1", VehicleID: "veh-1", URL: "http://127.0.0.1:1/nope.ics", Source: "Bad", Active: true}
	feeds.Upsert(context.Background(), bad)
	feeds.Upsert(context.Background(), good)

	results, err := svc.SyncAccount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("SyncAccount() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	var succeeded, failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
		} else {
			succeeded++
		}
	}
	if succeeded != 1 || failed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 1/1", succeeded, failed)
	}
}
