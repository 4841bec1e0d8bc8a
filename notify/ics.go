package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/emersion/go-ical"
)

// ExportICS renders the profile's pending doses for the next 30 days as an
// iCalendar feed, one VEVENT per occurrence, so the schedule can be
// subscribed to from any calendar client.
func (s *Syncer) ExportICS(ctx context.Context, profileID string) (string, error) {
	now := s.now()
	pending, err := s.pendingDoses(ctx, profileID, now)
	if err != nil {
		return "", err
	}
	reminders, err := s.remindersByID(ctx, profileID)
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//dosier//Dose Schedule//EN")

	for _, d := range pending {
		event := ical.NewComponent(ical.CompEvent)
		event.Props.SetText(ical.PropUID, d.ID)
		event.Props.SetDateTime(ical.PropDateTimeStamp, now)
		event.Props.SetDateTime(ical.PropDateTimeStart, d.ScheduledAt)
		title, body := content(reminders[d.ReminderID])
		event.Props.SetText(ical.PropSummary, title)
		event.Props.SetText(ical.PropDescription, body)
		cal.Children = append(cal.Children, event)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("export ics: encode calendar: %w", err)
	}
	return buf.String(), nil
}
