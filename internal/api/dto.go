package api

import (
	"encoding/json"
	"time"

	"github.com/starosta-app/starosta-back/internal/models"
)

// UserSummary is the stripped user shape nested in groups and invites.
type UserSummary struct {
	ID        uint        `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	FullName  string      `json:"full_name"`
	Role      models.Role `json:"role"`
}

type GroupResponse struct {
	ID       uint          `json:"id"`
	Name     string        `json:"name"`
	Starosta *UserSummary  `json:"starosta"`
	Students []UserSummary `json:"students"`
}

type ProfileResponse struct {
	UserSummary
	Group *GroupResponse `json:"group"`
}

type EventResponse struct {
	ID             uint           `json:"id"`
	Name           string         `json:"name"`
	URL            string         `json:"url"`
	Date           string         `json:"date"`
	Time           string         `json:"time"`
	Weekday        int            `json:"weekday"`
	Recurring      bool           `json:"recurring"`
	RecurringUntil *string        `json:"recurring_until"`
	IsActive       bool           `json:"is_active"`
	Group          *GroupResponse `json:"group"`
}

type InviteResponse struct {
	User UserSummary `json:"user"`
	Code string      `json:"code"`
}

type RolesResponse struct {
	Roles []models.Role `json:"roles"`
}

func toUserSummary(u *models.User) UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName,
		Role:      u.Role,
	}
}

func toGroupResponse(g *models.Group) *GroupResponse {
	if g == nil {
		return nil
	}
	resp := &GroupResponse{
		ID:       g.ID,
		Name:     g.Name,
		Students: make([]UserSummary, 0, len(g.Students)),
	}
	if g.Starosta != nil {
		s := toUserSummary(g.Starosta)
		resp.Starosta = &s
	}
	for i := range g.Students {
		resp.Students = append(resp.Students, toUserSummary(&g.Students[i]))
	}
	return resp
}

func toEventResponse(e *models.Event, g *GroupResponse) EventResponse {
	resp := EventResponse{
		ID:        e.ID,
		Name:      e.Name,
		URL:       e.URL,
		Date:      e.Date.Format(models.DateLayout),
		Time:      e.Time,
		Weekday:   e.Weekday,
		Recurring: e.Recurring,
		IsActive:  e.IsActive,
		Group:     g,
	}
	if e.RecurringUntil != nil {
		until := e.RecurringUntil.Format(models.DateLayout)
		resp.RecurringUntil = &until
	}
	return resp
}

func toEventResponses(events []models.Event, g *models.Group) []EventResponse {
	group := toGroupResponse(g)
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, toEventResponse(&events[i], group))
	}
	return out
}

// ProfileUpdateRequest is a partial update; role is not writable.
type ProfileUpdateRequest struct {
	Username  *string `json:"username" binding:"omitempty,min=1,max=150"`
	Email     *string `json:"email" binding:"omitempty,loose_email,max=254"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
}

// GroupUpdateRequest replaces the member set when Students is present.
// RemoveStudents only exists to reject the incremental form explicitly.
type GroupUpdateRequest struct {
	Name           *string `json:"name" binding:"omitempty,max=255"`
	Students       *[]uint `json:"students"`
	RemoveStudents *[]uint `json:"remove_students" swaggerignore:"true"`
}

type InviteRequest struct {
	Email     string `json:"email" binding:"required,loose_email,max=254"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

type EventCreateRequest struct {
	Name           string  `json:"name" binding:"required,max=255"`
	URL            string  `json:"url" binding:"required"`
	Date           string  `json:"date" binding:"required,datetime=2006-01-02"`
	Time           string  `json:"time" binding:"required"`
	Recurring      bool    `json:"recurring"`
	RecurringUntil *string `json:"recurring_until" binding:"omitempty,datetime=2006-01-02"`
	IsActive       *bool   `json:"is_active"`
}

type EventUpdateRequest struct {
	Name           *string  `json:"name" binding:"omitempty,min=1,max=255"`
	URL            *string  `json:"url" binding:"omitempty,min=1"`
	Date           *string  `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time           *string  `json:"time"`
	Recurring      *bool    `json:"recurring"`
	RecurringUntil nullDate `json:"recurring_until" swaggertype:"string" example:"2024-12-31"`
	IsActive       *bool    `json:"is_active"`
}

// nullDate tells an absent field apart from an explicit null. Null and ""
// both clear the date.
type nullDate struct {
	Set   bool
	Value string
}

func (d *nullDate) UnmarshalJSON(b []byte) error {
	d.Set = true
	if string(b) == "null" {
		d.Value = ""
		return nil
	}
	return json.Unmarshal(b, &d.Value)
}

// toEvent builds a new event for groupID. Messages are returned for fields
// that pass binding but not the model's own rules.
func (r *EventCreateRequest) toEvent(groupID uint) (*models.Event, []string) {
	e := &models.Event{
		GroupID:   groupID,
		Name:      r.Name,
		URL:       r.URL,
		Recurring: r.Recurring,
		IsActive:  true,
	}
	if r.IsActive != nil {
		e.IsActive = *r.IsActive
	}
	upd := EventUpdateRequest{Date: &r.Date, Time: &r.Time}
	if r.RecurringUntil != nil {
		upd.RecurringUntil = nullDate{Set: true, Value: *r.RecurringUntil}
	}
	return e, upd.apply(e)
}

func (r *EventUpdateRequest) apply(e *models.Event) []string {
	var errs []string
	if r.Name != nil {
		e.Name = *r.Name
	}
	if r.URL != nil {
		e.URL = *r.URL
	}
	if r.Date != nil {
		d, err := models.ParseDate(*r.Date)
		if err != nil {
			errs = append(errs, "Date has wrong format. Use 2006-01-02.")
		} else {
			e.Date = d
		}
	}
	if r.Time != nil {
		t, err := models.ParseClock(*r.Time)
		if err != nil {
			errs = append(errs, "Time has wrong format. Use hh:mm[:ss].")
		} else {
			e.Time = t
		}
	}
	if r.Recurring != nil {
		e.Recurring = *r.Recurring
	}
	if r.RecurringUntil.Set {
		if r.RecurringUntil.Value == "" {
			e.RecurringUntil = nil
		} else if d, err := models.ParseDate(r.RecurringUntil.Value); err != nil {
			errs = append(errs, "Recurring until has wrong format. Use 2006-01-02.")
		} else {
			e.RecurringUntil = &d
		}
	}
	if r.IsActive != nil {
		e.IsActive = *r.IsActive
	}
	return errs
}

// reactivate switches a finished, deactivated event back on when the update
// moved its last occurrence to today or later. An explicit is_active wins.
func (r *EventUpdateRequest) reactivate(e *models.Event, wasFinished bool, today time.Time) {
	if r.IsActive != nil || e.IsActive || !wasFinished {
		return
	}
	if !models.DateOnly(e.LastDate()).Before(models.DateOnly(today)) {
		e.IsActive = true
	}
}
