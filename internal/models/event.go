package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	GroupID        uint       `gorm:"not null;index" json:"group_id"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	URL            string     `gorm:"type:text" json:"url"`
	Date           time.Time  `gorm:"type:date;not null" json:"date"`
	Time           string     `gorm:"size:8;not null" json:"time"`
	Weekday        int        `gorm:"not null;default:0" json:"weekday"` // 0=Mon, 6=Sun
	Recurring      bool       `gorm:"not null;default:false" json:"recurring"`
	RecurringUntil *time.Time `gorm:"type:date" json:"recurring_until"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
}

// BeforeSave derives Weekday from Date; whatever the caller put there is discarded.
func (e *Event) BeforeSave(tx *gorm.DB) error {
	e.Date = DateOnly(e.Date)
	if e.RecurringUntil != nil {
		until := DateOnly(*e.RecurringUntil)
		e.RecurringUntil = &until
	}
	e.Weekday = WeekdayOf(e.Date)
	t, err := ParseClock(e.Time)
	if err != nil {
		return err
	}
	e.Time = t
	return nil
}

// WeekdayOf returns the day of week with Monday=0 through Sunday=6.
func WeekdayOf(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// ParseClock accepts HH:MM or HH:MM:SS and returns the HH:MM:SS form.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q", s)
}

// LastDate is the date of the final occurrence the event can produce.
func (e *Event) LastDate() time.Time {
	if e.Recurring && e.RecurringUntil != nil && e.RecurringUntil.After(e.Date) {
		return *e.RecurringUntil
	}
	return e.Date
}
