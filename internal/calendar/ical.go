// Package calendar provides iCal parsing, generation, and feed sync for
// vehicle booking calendars.
package calendar

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fleetcal/backend/internal/storage/models"
)

// userAgent identifies feed fetches to third-party calendar hosts.
const userAgent = "FleetCal-CalendarSync/1.0 (+https://fleetcal.app)"

// defaultSummary is used for feed events that carry no SUMMARY line.
const defaultSummary = "External Booking"

// Parser fetches and parses iCal/ICS calendar feeds. It is built for
// arbitrary marketplace exports: malformed event blocks are dropped rather
// than rejected, and missing optional fields get defaults.
type Parser struct {
	httpClient *http.Client
}

// NewParser creates a new iCal parser.
func NewParser() *Parser {
	return &Parser{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchAndParse downloads and parses an iCal feed from a URL. The dropped
// count reports event blocks discarded for missing dates.
func (p *Parser) FetchAndParse(url string) (events []models.CalendarEvent, dropped int, err error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, 0, fmt.Errorf("calendar returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading calendar: %w", err)
	}

	events, dropped = p.Parse(string(body))
	return events, dropped, nil
}

// Parse extracts events from raw iCal text. Event blocks missing a start or
// end date are counted in dropped and skipped; nothing in the document can
// make parsing fail.
func (p *Parser) Parse(data string) (events []models.CalendarEvent, dropped int) {
	blocks := strings.Split(data, "BEGIN:VEVENT")
	if len(blocks) < 2 {
		return nil, 0
	}

	for i, block := range blocks[1:] {
		if end := strings.Index(block, "END:VEVENT"); end != -1 {
			block = block[:end]
		}

		event, ok := p.parseEventBlock(block, i+1)
		if !ok {
			dropped++
			continue
		}
		events = append(events, event)
	}

	return events, dropped
}

// parseEventBlock extracts one event from the text between BEGIN:VEVENT and
// END:VEVENT. Field order does not matter.
func (p *Parser) parseEventBlock(block string, index int) (models.CalendarEvent, bool) {
	event := models.CalendarEvent{}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")

		switch {
		case strings.HasPrefix(line, "UID:"):
			event.UID = strings.TrimSpace(strings.TrimPrefix(line, "UID:"))
		case strings.HasPrefix(line, "SUMMARY:"):
			event.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "DTSTART"):
			event.StartDate = normalizeDate(lastColonValue(line))
		case strings.HasPrefix(line, "DTEND"):
			event.EndDate = normalizeDate(lastColonValue(line))
		}
	}

	if event.StartDate == "" || event.EndDate == "" {
		return models.CalendarEvent{}, false
	}

	// DTEND is exclusive for all-day events; store the last inclusive day.
	event.EndDate = addDays(event.EndDate, -1)

	if event.Summary == "" {
		event.Summary = defaultSummary
	}
	if event.UID == "" {
		event.UID = fmt.Sprintf("imported-%d", index)
	}

	return event, true
}

// lastColonValue returns the value after the last colon on the line, so
// parameterized properties like DTSTART;TZID=UTC:20250110 resolve to the
// date portion.
func lastColonValue(line string) string {
	idx := strings.LastIndex(line, ":")
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

// normalizeDate converts iCal date values to YYYY-MM-DD. The basic 8-digit
// form and the date-time form (date portion before T) are handled; anything
// else passes through unchanged.
func normalizeDate(value string) string {
	if t := strings.Index(value, "T"); t != -1 {
		value = value[:t]
	}
	if len(value) == 8 {
		return value[:4] + "-" + value[4:6] + "-" + value[6:8]
	}
	return value
}

// addDays shifts a YYYY-MM-DD date by n calendar days. Values that do not
// parse as dates are returned unchanged.
func addDays(date string, n int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format("2006-01-02")
}

// FilterFutureEvents returns only events whose last day is on or after
// today. Events that ended in the past cannot affect availability. Events
// whose end date never normalized to a real date are excluded too, since
// they cannot be stored as bookings.
func FilterFutureEvents(events []models.CalendarEvent, today time.Time) []models.CalendarEvent {
	cutoff := today.Format("2006-01-02")

	var future []models.CalendarEvent
	for _, e := range events {
		if _, err := time.Parse("2006-01-02", e.EndDate); err != nil {
			continue
		}
		if e.EndDate >= cutoff {
			future = append(future, e)
		}
	}
	return future
}
