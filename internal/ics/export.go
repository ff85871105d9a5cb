// Package ics renders a group's expanded timetable as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/starosta-app/starosta-back/internal/models"
)

const (
	productID = "-//starosta//timetable//EN"

	// DefaultDuration is used for every occurrence; events carry no end time.
	DefaultDuration = time.Hour
)

// Write serializes occurrences as one VEVENT each. Occurrence start times
// are interpreted in loc.
func Write(w io.Writer, calName string, occurrences []models.Event, loc *time.Location, stamp time.Time) error {
	if loc == nil {
		loc = time.UTC
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(calName)

	for i := range occurrences {
		occ := &occurrences[i]
		start, err := StartOf(occ, loc)
		if err != nil {
			return fmt.Errorf("event %d: %w", occ.ID, err)
		}

		ev := cal.AddEvent(UID(occ))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(DefaultDuration))
		ev.SetSummary(occ.Name)
		if occ.URL != "" {
			ev.SetURL(occ.URL)
			ev.SetDescription(occ.URL)
		}
	}

	return cal.SerializeTo(w)
}

// UID is stable per occurrence: virtual occurrences share the event id, so
// the date is part of it.
func UID(e *models.Event) string {
	return fmt.Sprintf("event-%d-%s@starosta", e.ID, e.Date.Format("20060102"))
}

// StartOf combines the occurrence date and time of day in loc.
func StartOf(e *models.Event, loc *time.Location) (time.Time, error) {
	clock, err := time.Parse(models.TimeLayout, e.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q", e.Time)
	}
	y, m, d := e.Date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, loc), nil
}
