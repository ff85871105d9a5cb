package models

import (
	"testing"
	"time"
)

func TestUserNormalize(t *testing.T) {
	u := &User{
		Email:     " Foo@Bar.com ",
		FirstName: "  ivan ",
		LastName:  "PETRENKO",
	}
	u.Normalize()

	if u.Email != "foo@bar.com" {
		t.Errorf("Email = %q, want %q", u.Email, "foo@bar.com")
	}
	if u.FirstName != "ivan" || u.LastName != "PETRENKO" {
		t.Errorf("names not trimmed: %q %q", u.FirstName, u.LastName)
	}
	if u.FullName != "Ivan Petrenko" {
		t.Errorf("FullName = %q, want %q", u.FullName, "Ivan Petrenko")
	}
	if u.Username == "" {
		t.Error("expected a generated username")
	}
	if u.Role != RoleStudent {
		t.Errorf("Role = %q, want %q", u.Role, RoleStudent)
	}
}

func TestUserNormalizeKeepsUsernameAndClearsFullName(t *testing.T) {
	u := &User{Username: "olena", FirstName: "Olena", FullName: "stale"}
	u.Normalize()

	if u.Username != "olena" {
		t.Errorf("Username = %q, want olena", u.Username)
	}
	if u.FullName != "" {
		t.Errorf("FullName = %q, want empty without a last name", u.FullName)
	}
}

func TestNormalizeEmailStripsInnerWhitespace(t *testing.T) {
	if got := NormalizeEmail("a b\t@X.COM"); got != "ab@x.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestPromoteToSuperuser(t *testing.T) {
	u := &User{Role: RoleStudent}
	u.PromoteToSuperuser()
	if !u.IsSuperuser || u.Role != RoleAdmin {
		t.Errorf("got superuser=%v role=%q", u.IsSuperuser, u.Role)
	}
}

func TestPassword(t *testing.T) {
	u := &User{}
	if u.CheckPassword("anything") {
		t.Fatal("empty hash must not match")
	}
	if err := u.SetPassword("correct horse"); err != nil {
		t.Fatal(err)
	}
	if u.Password == "correct horse" {
		t.Fatal("password stored in plain text")
	}
	if !u.CheckPassword("correct horse") {
		t.Error("expected password to match")
	}
	if u.CheckPassword("wrong") {
		t.Error("expected wrong password to fail")
	}
}

func TestWeekdayOf(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2024-09-02", 0}, // Monday
		{"2024-09-04", 2},
		{"2024-09-07", 5},
		{"2024-09-08", 6}, // Sunday
	}
	for _, tt := range tests {
		d, _ := time.Parse(DateLayout, tt.date)
		if got := WeekdayOf(d); got != tt.want {
			t.Errorf("WeekdayOf(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestEventBeforeSaveDerivesWeekday(t *testing.T) {
	d, _ := time.Parse(DateLayout, "2024-09-08")
	e := &Event{Date: d.Add(15 * time.Hour), Time: "9:30", Weekday: 3}
	if err := e.BeforeSave(nil); err != nil {
		t.Fatal(err)
	}
	if e.Weekday != 6 {
		t.Errorf("Weekday = %d, want 6", e.Weekday)
	}
	if e.Time != "09:30:00" {
		t.Errorf("Time = %q, want 09:30:00", e.Time)
	}
	if !e.Date.Equal(d) {
		t.Errorf("Date = %v, want %v", e.Date, d)
	}
}

func TestEventBeforeSaveRejectsBadTime(t *testing.T) {
	e := &Event{Date: time.Now(), Time: "25:99"}
	if err := e.BeforeSave(nil); err == nil {
		t.Error("expected an error for an invalid time")
	}
}

func TestEventLastDate(t *testing.T) {
	d, _ := time.Parse(DateLayout, "2024-09-02")
	until := d.AddDate(0, 0, 21)
	before := d.AddDate(0, 0, -1)

	tests := []struct {
		name string
		e    Event
		want time.Time
	}{
		{"single", Event{Date: d}, d},
		{"recurring", Event{Date: d, Recurring: true, RecurringUntil: &until}, until},
		{"until before date", Event{Date: d, Recurring: true, RecurringUntil: &before}, d},
		{"flag off", Event{Date: d, RecurringUntil: &until}, d},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.LastDate(); !got.Equal(tt.want) {
				t.Errorf("LastDate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupDefaultName(t *testing.T) {
	g := &Group{Starosta: &User{FirstName: "Taras"}}
	if err := g.BeforeSave(nil); err != nil {
		t.Fatal(err)
	}
	if g.Name != "Group of Taras" {
		t.Errorf("Name = %q", g.Name)
	}

	named := &Group{Name: "KN-21", Starosta: &User{FirstName: "Taras"}}
	_ = named.BeforeSave(nil)
	if named.Name != "KN-21" {
		t.Errorf("explicit name overwritten: %q", named.Name)
	}
}

func TestRoles(t *testing.T) {
	roles := Roles()
	if len(roles) != 3 || roles[0] != RoleAdmin || roles[1] != RoleStarosta || roles[2] != RoleStudent {
		t.Errorf("Roles = %v", roles)
	}
	if Role("Dean").Valid() {
		t.Error("unexpected valid role")
	}
}
