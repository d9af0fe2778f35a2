package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fleetcal/backend/internal/storage/models"
)

const (
	prodID    = "-//FleetCal//Booking Calendar//EN"
	uidDomain = "fleetcal.app"

	dateTimeFormat = "20060102T150405Z"
	dateFormat     = "20060102"
)

// Generate renders a vehicle's bookings as a complete iCalendar document
// with CRLF line endings, suitable for consumption by external calendar
// clients. Only bookings that block availability should be passed in
// (confirmed, pending, active).
func Generate(vehicle *models.Vehicle, bookings []models.Booking, now time.Time) string {
	name := vehicle.DisplayName()

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:" + prodID + "\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")
	b.WriteString("METHOD:PUBLISH\r\n")
	b.WriteString("X-WR-CALNAME:" + escapeText(name+" Bookings") + "\r\n")
	b.WriteString("X-WR-CALDESC:" + escapeText("Booking calendar for "+name) + "\r\n")

	for i := range bookings {
		writeEvent(&b, &bookings[i], now)
	}

	b.WriteString("END:VCALENDAR\r\n")

	return b.String()
}

func writeEvent(b *strings.Builder, booking *models.Booking, now time.Time) {
	b.WriteString("BEGIN:VEVENT\r\n")

	// Stable across regenerations so consumers can detect unchanged events.
	fmt.Fprintf(b, "UID:booking-%s@%s\r\n", booking.ID, uidDomain)
	fmt.Fprintf(b, "DTSTAMP:%s\r\n", now.UTC().Format(dateTimeFormat))

	// Stored end dates are inclusive; iCal all-day DTEND is exclusive.
	fmt.Fprintf(b, "DTSTART;VALUE=DATE:%s\r\n", compactDate(booking.StartDate))
	fmt.Fprintf(b, "DTEND;VALUE=DATE:%s\r\n", compactDate(addDays(booking.EndDate, 1)))

	summary := booking.CustomerName
	if summary == "" {
		summary = booking.Status
	}
	fmt.Fprintf(b, "SUMMARY:%s\r\n", escapeText(summary))

	description := "Status: " + booking.Status
	if booking.Notes != "" {
		description += "\nNotes: " + booking.Notes
	}
	fmt.Fprintf(b, "DESCRIPTION:%s\r\n", escapeText(description))

	b.WriteString("TRANSP:OPAQUE\r\n")

	status := "TENTATIVE"
	if booking.Status == models.BookingStatusConfirmed {
		status = "CONFIRMED"
	}
	fmt.Fprintf(b, "STATUS:%s\r\n", status)

	b.WriteString("END:VEVENT\r\n")
}

// compactDate converts YYYY-MM-DD to the iCal YYYYMMDD form.
func compactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// escapeText escapes free text per RFC 5545. Backslash must come first so
// the characters introduced by later substitutions are not double-escaped.
func escapeText(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ";", "\\;")
	text = strings.ReplaceAll(text, ",", "\\,")
	text = strings.ReplaceAll(text, "\n", "\\n")
	return text
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportFilename derives the download filename for a vehicle's calendar.
func ExportFilename(vehicleName string) string {
	return nonAlphanumeric.ReplaceAllString(vehicleName, "_") + "_calendar.ics"
}
