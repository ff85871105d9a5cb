// Package recurrence turns stored events into the list of upcoming
// occurrences shown in a group's calendar.
package recurrence

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/starosta-app/starosta-back/internal/models"
)

const weekDays = 7

// Occurrences returns the base occurrence of e followed by its weekly virtual
// occurrences up to and including RecurringUntil. Virtual occurrences keep
// the base event's ID and are never persisted.
func Occurrences(e models.Event) []models.Event {
	base := e
	base.Date = models.DateOnly(e.Date)
	base.Weekday = models.WeekdayOf(base.Date)
	out := []models.Event{base}

	if !e.Recurring || e.RecurringUntil == nil {
		return out
	}

	first := base.Date.AddDate(0, 0, weekDays)
	until := models.DateOnly(*e.RecurringUntil)
	if until.Before(first) {
		return out
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: 1,
		Dtstart:  first,
		Until:    until,
	})
	if err != nil {
		return out
	}

	for _, date := range rule.All() {
		v := base
		v.Date = models.DateOnly(date)
		v.Weekday = models.WeekdayOf(v.Date)
		out = append(out, v)
	}
	return out
}

// Expand merges the occurrences of all events, drops those dated before
// today and orders the rest by date then time of day.
func Expand(events []models.Event, today time.Time) []models.Event {
	cutoff := models.DateOnly(today)

	var all []models.Event
	for _, e := range events {
		if models.DateOnly(e.LastDate()).Before(cutoff) {
			continue
		}
		all = append(all, Occurrences(e)...)
	}

	upcoming := all[:0]
	for _, occ := range all {
		if occ.Date.Before(cutoff) {
			continue
		}
		upcoming = append(upcoming, occ)
	}

	Sort(upcoming)
	return upcoming
}

// Sort orders occurrences by (Date, Time) ascending, keeping input order for ties.
func Sort(occ []models.Event) {
	sort.SliceStable(occ, func(i, j int) bool {
		if !occ[i].Date.Equal(occ[j].Date) {
			return occ[i].Date.Before(occ[j].Date)
		}
		return occ[i].Time < occ[j].Time
	})
}
