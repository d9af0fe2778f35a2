package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/fleetcal/backend/internal/storage/models"
)

func testVehicle() *models.Vehicle {
	return &models.Vehicle{
		ID:    "veh-1",
		Make:  "Lamborghini",
		Model: "Huracan",
		Year:  2022,
	}
}

func TestGenerateDocumentStructure(t *testing.T) {
	bookings := []models.Booking{
		{
			ID:           "bk-1",
			CustomerName: "Jordan Lee",
			StartDate:    "2025-01-10",
			EndDate:      "2025-01-12",
			Status:       models.BookingStatusConfirmed,
		},
	}

	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	doc := Generate(testVehicle(), bookings, now)

	wantLines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:2022 Lamborghini Huracan Bookings",
		"UID:booking-bk-1@fleetcal.app",
		"DTSTAMP:20250105T120000Z",
		"DTSTART;VALUE=DATE:20250110",
		// Stored end is inclusive; emitted DTEND is the day after.
		"DTEND;VALUE=DATE:20250113",
		"SUMMARY:Jordan Lee",
		"TRANSP:OPAQUE",
		"STATUS:CONFIRMED",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	for _, line := range wantLines {
		if !strings.Contains(doc, line+"\r\n") {
			t.Errorf("document missing line %q", line)
		}
	}

	if strings.Contains(strings.ReplaceAll(doc, "\r\n", ""), "\n") {
		t.Error("document contains bare line feeds, want CRLF only")
	}
}

func TestGenerateSummaryFallsBackToStatus(t *testing.T) {
	bookings := []models.Booking{
		{ID: "bk-2", StartDate: "2025-02-01", EndDate: "2025-02-03", Status: models.BookingStatusPending},
	}

	doc := Generate(testVehicle(), bookings, time.Now())
	if !strings.Contains(doc, "SUMMARY:pending\r\n") {
		t.Errorf("document missing SUMMARY:pending, got:\n%s", doc)
	}
	if !strings.Contains(doc, "STATUS:TENTATIVE\r\n") {
		t.Errorf("non-confirmed booking should map to STATUS:TENTATIVE")
	}
}

func TestGenerateEscapesText(t *testing.T) {
	bookings := []models.Booking{
		{
			ID:           "bk-3",
			CustomerName: "Smith; Jones, Inc.",
			StartDate:    "2025-03-01",
			EndDate:      "2025-03-02",
			Status:       models.BookingStatusConfirmed,
			Notes:        "deposit paid; cash, remainder\ndue at pickup",
		},
	}

	doc := Generate(testVehicle(), bookings, time.Now())
	if !strings.Contains(doc, `SUMMARY:Smith\; Jones\, Inc.`+"\r\n") {
		t.Errorf("summary not escaped, got:\n%s", doc)
	}
	if !strings.Contains(doc, `Notes: deposit paid\; cash\, remainder\ndue at pickup`+"\r\n") {
		t.Errorf("description not escaped, got:\n%s", doc)
	}
}

func TestGenerateEscapesBackslashFirst(t *testing.T) {
	bookings := []models.Booking{
		{ID: "bk-4", CustomerName: `A\B`, StartDate: "2025-03-01", EndDate: "2025-03-02", Status: models.BookingStatusConfirmed},
	}

	doc := Generate(testVehicle(), bookings, time.Now())
	if !strings.Contains(doc, `SUMMARY:A\\B`+"\r\n") {
		t.Errorf("backslash not escaped before other substitutions, got:\n%s", doc)
	}
}

func TestGenerateParseRoundTrip(t *testing.T) {
	bookings := []models.Booking{
		{
			ID:           "bk-5",
			CustomerName: "Casey Morgan",
			StartDate:    "2025-04-18",
			EndDate:      "2025-04-21",
			Status:       models.BookingStatusActive,
		},
	}

	doc := Generate(testVehicle(), bookings, time.Now())
	events, dropped := NewParser().Parse(doc)

	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].StartDate != "2025-04-18" {
		t.Errorf("start = %q, want %q", events[0].StartDate, "2025-04-18")
	}
	if events[0].EndDate != "2025-04-21" {
		t.Errorf("end = %q, want %q", events[0].EndDate, "2025-04-21")
	}
	if events[0].Summary != "Casey Morgan" {
		t.Errorf("summary = %q, want %q", events[0].Summary, "Casey Morgan")
	}
}

func TestExportFilename(t *testing.T) {
	got := ExportFilename("2022 Lamborghini Huracan")
	want := "2022_Lamborghini_Huracan_calendar.ics"
	if got != want {
		t.Errorf("filename = %q, want %q", got, want)
	}

	got = ExportFilename("McLaren 720S (Spider)!")
	want = "McLaren_720S__Spider___calendar.ics"
	if got != want {
		t.Errorf("filename = %q, want %q", got, want)
	}
}
