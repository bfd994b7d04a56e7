// Package calendar writes RFC 5545 meeting requests.
package calendar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

// ErrInvalidTimeFormat is returned when a start or end time matches none of
// the accepted layouts.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// Layouts accepted for start and end times. Layouts without a zone are read
// in the writer's location.
var Layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Invite describes one event.
type Invite struct {
	Summary     string
	Start       string
	End         string
	Location    string
	Description string
	Attendees   []string
	Organizer   string
}

// Writer renders invites into files.
type Writer struct {
	productID string
	location  *time.Location
	now       func() time.Time
}

func NewWriter(productID string, loc *time.Location) *Writer {
	if productID == "" {
		productID = "-//Invitation Assistant//EN"
	}
	if loc == nil {
		loc = time.Local
	}
	return &Writer{productID: productID, location: loc, now: time.Now}
}

// Render builds the calendar document. A start after the end is accepted as
// given.
func (w *Writer) Render(inv Invite) ([]byte, error) {
	start, err := w.parse(inv.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := w.parse(inv.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId(w.productID)

	event := cal.AddEvent(uuid.NewString())
	event.SetDtStampTime(w.now().UTC())
	event.SetStartAt(start.UTC())
	event.SetEndAt(end.UTC())
	event.SetSummary(inv.Summary)
	if inv.Location != "" {
		event.SetLocation(inv.Location)
	}
	if inv.Description != "" {
		event.SetDescription(inv.Description)
	}
	if inv.Organizer != "" {
		event.SetOrganizer(mailto(inv.Organizer))
	}
	for _, a := range inv.Attendees {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		// AddAttendee adds the mailto: scheme itself.
		event.AddAttendee(bareAddress(a),
			ics.CalendarUserTypeIndividual,
			ics.ParticipationStatusNeedsAction,
			ics.ParticipationRoleReqParticipant,
			// WithRSVP would write the lowercase "true".
			&ics.KeyValues{Key: string(ics.ParameterRsvp), Value: []string{"TRUE"}},
		)
	}

	return []byte(cal.Serialize()), nil
}

// Create renders inv and writes it to path, creating the directory if needed.
func (w *Writer) Create(inv Invite, path string) ([]byte, error) {
	data, err := w.Render(inv)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create calendar directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write calendar file: %w", err)
	}
	return data, nil
}

func (w *Writer) parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range Layouts {
		if t, err := time.ParseInLocation(layout, value, w.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
}

func mailto(addr string) string {
	return "mailto:" + bareAddress(addr)
}

func bareAddress(addr string) string {
	const scheme = "mailto:"
	if len(addr) >= len(scheme) && strings.EqualFold(addr[:len(scheme)], scheme) {
		return addr[len(scheme):]
	}
	return addr
}
