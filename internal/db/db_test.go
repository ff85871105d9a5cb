package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/starosta-app/starosta-back/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createUser(t *testing.T, s *Store, email string, role models.Role, active bool) *models.User {
	t.Helper()
	u := &models.User{
		Email:     email,
		FirstName: "test",
		LastName:  "user",
		Role:      role,
		IsActive:  active,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, " Foo@Bar.com ", models.RoleStudent, true)

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Email != "foo@bar.com" {
		t.Errorf("stored email = %q, want foo@bar.com", got.Email)
	}

	byEmail, err := s.GetUserByEmail(ctx, "FOO@bar.COM")
	if err != nil {
		t.Fatalf("lookup by email: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("GetUserByEmail returned id %d, want %d", byEmail.ID, u.ID)
	}

	taken, err := s.EmailTaken(ctx, "foo@BAR.com", 0)
	if err != nil || !taken {
		t.Errorf("EmailTaken = %v, %v; want true", taken, err)
	}
	taken, _ = s.EmailTaken(ctx, "foo@bar.com", u.ID)
	if taken {
		t.Error("EmailTaken should ignore the excluded user")
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetUserByID(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCurrentGroupCreatesStarostaGroupOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	starosta.FirstName = "Taras"

	first, err := s.CurrentGroup(ctx, starosta)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.CurrentGroup(ctx, starosta)
	if err != nil {
		t.Fatal(err)
	}

	if first.ID == 0 || first.ID != second.ID {
		t.Errorf("group ids differ: %d vs %d", first.ID, second.ID)
	}
	if first.Name != "Group of Taras" {
		t.Errorf("Name = %q", first.Name)
	}
	if first.Starosta == nil || first.Starosta.ID != starosta.ID {
		t.Errorf("starosta not loaded: %+v", first.Starosta)
	}

	var count int64
	s.db.Model(&models.Group{}).Where("starosta_id = ?", starosta.ID).Count(&count)
	if count != 1 {
		t.Errorf("group count = %d, want 1", count)
	}
}

func TestGetOrCreateRevivesSoftDeletedGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)

	g, err := s.GetOrCreateStarostaGroup(ctx, starosta)
	if err != nil {
		t.Fatal(err)
	}
	s.db.Model(g).UpdateColumn("deleted", true)

	if _, err := s.GetGroup(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted group visible: %v", err)
	}
	again, err := s.GetOrCreateStarostaGroup(ctx, starosta)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != g.ID || again.Deleted {
		t.Errorf("got %+v, want revived group %d", again, g.ID)
	}
}

func TestCurrentGroupForStudent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	student := createUser(t, s, "s@x.com", models.RoleStudent, true)

	g, err := s.CurrentGroup(ctx, student)
	if err != nil || g != nil {
		t.Fatalf("CurrentGroup = %+v, %v; want nil, nil", g, err)
	}

	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)
	ids := []uint{student.ID}
	if err := s.UpdateGroup(ctx, group, GroupUpdate{StudentIDs: &ids}); err != nil {
		t.Fatal(err)
	}

	g, err = s.CurrentGroup(ctx, student)
	if err != nil {
		t.Fatal(err)
	}
	if g == nil || g.ID != group.ID {
		t.Errorf("CurrentGroup = %+v, want group %d", g, group.ID)
	}
}

func TestCreateInvite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)

	invite, err := s.CreateInvite(ctx, InviteInput{Email: "a@x.com", GroupID: group.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(invite.Code) != 36 {
		t.Errorf("code = %q, want a UUID", invite.Code)
	}
	if invite.User.Email != "a@x.com" || invite.User.IsActive || invite.User.Role != models.RoleStudent {
		t.Errorf("unexpected invited user: %+v", invite.User)
	}

	var users []models.User
	s.db.Where("email = ?", "a@x.com").Find(&users)
	if len(users) != 1 || users[0].IsActive {
		t.Fatalf("users = %+v, want exactly one inactive user", users)
	}

	var invites int64
	s.db.Model(&models.UserInvite{}).Where("user_id = ?", users[0].ID).Count(&invites)
	if invites != 1 {
		t.Errorf("invite count = %d, want 1", invites)
	}

	reloaded, err := s.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.HasStudent(users[0].ID) {
		t.Error("invited user not added to the group")
	}
}

func TestCreateInviteErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)

	if _, err := s.CreateInvite(ctx, InviteInput{Email: "a@x.com", GroupID: group.ID + 100}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing group: err = %v, want ErrNotFound", err)
	}
	if _, err := s.CreateInvite(ctx, InviteInput{Email: "LEAD@x.com", GroupID: group.ID}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email: err = %v, want ErrEmailTaken", err)
	}

	var count int64
	s.db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("failed invites left %d users behind, want 1", count)
	}
}

func TestUpdateGroupReplacesMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	a := createUser(t, s, "a@x.com", models.RoleStudent, true)
	b := createUser(t, s, "b@x.com", models.RoleStudent, true)
	c := createUser(t, s, "c@x.com", models.RoleStudent, true)
	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)

	ids := []uint{a.ID, b.ID, a.ID}
	name := "KN-21"
	if err := s.UpdateGroup(ctx, group, GroupUpdate{Name: &name, StudentIDs: &ids}); err != nil {
		t.Fatal(err)
	}

	ids = []uint{c.ID}
	if err := s.UpdateGroup(ctx, group, GroupUpdate{StudentIDs: &ids}); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetGroup(ctx, group.ID)
	if got.Name != "KN-21" {
		t.Errorf("Name = %q", got.Name)
	}
	if len(got.Students) != 1 || got.Students[0].ID != c.ID {
		t.Errorf("students = %+v, want only %d", got.Students, c.ID)
	}

	empty := []uint{}
	if err := s.UpdateGroup(ctx, group, GroupUpdate{StudentIDs: &empty}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetGroup(ctx, group.ID)
	if len(got.Students) != 0 {
		t.Errorf("students = %+v, want none", got.Students)
	}
}

func TestUpdateGroupUnknownStudent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)

	ids := []uint{starosta.ID, 404}
	err := s.UpdateGroup(ctx, group, GroupUpdate{StudentIDs: &ids})
	var unknown *UnknownUserError
	if !errors.As(err, &unknown) || unknown.ID != 404 {
		t.Errorf("err = %v, want UnknownUserError for 404", err)
	}
}

func TestAvailableStudents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	free := createUser(t, s, "free@x.com", models.RoleStudent, true)
	member := createUser(t, s, "member@x.com", models.RoleStudent, true)
	createUser(t, s, "inactive@x.com", models.RoleStudent, false)

	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)
	ids := []uint{member.ID}
	_ = s.UpdateGroup(ctx, group, GroupUpdate{StudentIDs: &ids})

	got, err := s.AvailableStudents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != free.ID {
		t.Errorf("AvailableStudents = %+v, want only %d", got, free.ID)
	}
}

func TestEventsScopedToGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _ := s.GetOrCreateStarostaGroup(ctx, createUser(t, s, "a@x.com", models.RoleStarosta, true))
	b, _ := s.GetOrCreateStarostaGroup(ctx, createUser(t, s, "b@x.com", models.RoleStarosta, true))

	e := &models.Event{GroupID: a.ID, Name: "Physics", Date: mustDate(t, "2024-09-08"), Time: "10:15", Weekday: 1, IsActive: true}
	if err := s.CreateEvent(ctx, e); err != nil {
		t.Fatal(err)
	}
	hidden := &models.Event{GroupID: a.ID, Name: "Hidden", Date: mustDate(t, "2024-09-09"), Time: "10:15", IsActive: false}
	if err := s.CreateEvent(ctx, hidden); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetEvent(ctx, a.ID, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Weekday != 6 || got.Time != "10:15:00" {
		t.Errorf("stored weekday=%d time=%q", got.Weekday, got.Time)
	}
	if !got.Date.Equal(mustDate(t, "2024-09-08")) {
		t.Errorf("stored date = %v", got.Date)
	}

	if _, err := s.GetEvent(ctx, b.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-group lookup: err = %v, want ErrNotFound", err)
	}

	list, err := s.ListActiveEvents(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != e.ID {
		t.Errorf("ListActiveEvents = %+v", list)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)
	invite, err := s.CreateInvite(ctx, InviteInput{Email: "a@x.com", GroupID: group.ID})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.CreateEvent(ctx, &models.Event{GroupID: group.ID, Name: "Lab", Date: mustDate(t, "2030-01-07"), Time: "12:00", IsActive: true})

	if err := s.DeleteUser(ctx, invite.User.ID); err != nil {
		t.Fatal(err)
	}
	var n int64
	s.db.Table("group_students").Where("user_id = ?", invite.User.ID).Count(&n)
	if n != 0 {
		t.Errorf("membership rows left: %d", n)
	}
	s.db.Model(&models.UserInvite{}).Count(&n)
	if n != 0 {
		t.Errorf("invites left: %d", n)
	}

	if err := s.DeleteUser(ctx, starosta.ID); err != nil {
		t.Fatal(err)
	}
	s.db.Model(&models.Group{}).Count(&n)
	if n != 0 {
		t.Errorf("groups left: %d", n)
	}
	s.db.Model(&models.Event{}).Count(&n)
	if n != 0 {
		t.Errorf("events left: %d", n)
	}

	if err := s.DeleteUser(ctx, starosta.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestDeactivateFinishedEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	group, _ := s.GetOrCreateStarostaGroup(ctx, createUser(t, s, "lead@x.com", models.RoleStarosta, true))

	until := mustDate(t, "2024-10-01")
	ended := mustDate(t, "2024-09-10")
	events := []models.Event{
		{GroupID: group.ID, Name: "past single", Date: mustDate(t, "2024-09-02"), Time: "09:00", IsActive: true},
		{GroupID: group.ID, Name: "still recurring", Date: mustDate(t, "2024-09-02"), Time: "09:00", Recurring: true, RecurringUntil: &until, IsActive: true},
		{GroupID: group.ID, Name: "recurrence ended", Date: mustDate(t, "2024-09-02"), Time: "09:00", Recurring: true, RecurringUntil: &ended, IsActive: true},
		{GroupID: group.ID, Name: "future", Date: mustDate(t, "2024-09-20"), Time: "09:00", IsActive: true},
	}
	if err := s.CreateEvents(ctx, events); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeactivateFinishedEvents(ctx, mustDate(t, "2024-09-15"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deactivated %d events, want 2", n)
	}

	active, _ := s.ListActiveEvents(ctx, group.ID)
	if len(active) != 2 {
		t.Errorf("active events = %d, want 2", len(active))
	}
}

func TestExpireStaleInvites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	group, _ := s.GetOrCreateStarostaGroup(ctx, createUser(t, s, "lead@x.com", models.RoleStarosta, true))
	if _, err := s.CreateInvite(ctx, InviteInput{Email: "a@x.com", GroupID: group.ID}); err != nil {
		t.Fatal(err)
	}

	n, err := s.ExpireStaleInvites(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("fresh invite expired: n=%d err=%v", n, err)
	}
	n, err = s.ExpireStaleInvites(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("stale invite not expired: n=%d err=%v", n, err)
	}
}

func TestEnsureSuperuser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, created, err := s.EnsureSuperuser(ctx, "Admin@X.com", "s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	if !created || !u.IsSuperuser || u.Role != models.RoleAdmin || !u.IsActive {
		t.Fatalf("unexpected bootstrap result created=%v user=%+v", created, u)
	}
	if !u.CheckPassword("s3cret-pass") {
		t.Error("password not set")
	}

	again, created, err := s.EnsureSuperuser(ctx, "admin@x.com", "other")
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != u.ID {
		t.Errorf("second call created=%v id=%d, want existing %d", created, again.ID, u.ID)
	}

	student := createUser(t, s, "student@x.com", models.RoleStudent, true)
	promoted, created, err := s.EnsureSuperuser(ctx, "student@x.com", "ignored")
	if err != nil {
		t.Fatal(err)
	}
	if created || promoted.ID != student.ID || promoted.Role != models.RoleAdmin {
		t.Errorf("existing user not promoted: %+v", promoted)
	}
}

func TestDeleteGroupCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)
	if _, err := s.CreateInvite(ctx, InviteInput{Email: "a@x.com", GroupID: group.ID}); err != nil {
		t.Fatal(err)
	}
	_ = s.CreateEvent(ctx, &models.Event{GroupID: group.ID, Name: "Lab", Date: mustDate(t, "2030-01-07"), Time: "12:00", IsActive: true})

	if err := s.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatal(err)
	}
	var n int64
	s.db.Model(&models.Event{}).Count(&n)
	if n != 0 {
		t.Errorf("events left: %d", n)
	}
	s.db.Table("group_students").Count(&n)
	if n != 0 {
		t.Errorf("membership rows left: %d", n)
	}
	if _, err := s.GetGroup(ctx, group.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGroup after delete: err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByID(ctx, starosta.ID); err != nil {
		t.Errorf("starosta should survive group deletion: %v", err)
	}
}

func TestCreateInviteRejectsUnknownRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)

	if _, err := s.CreateInvite(ctx, InviteInput{Email: "a@x.com", GroupID: group.ID, Role: "dean"}); err == nil {
		t.Fatal("expected an error for an unknown role")
	}
	if taken, _ := s.EmailTaken(ctx, "a@x.com", 0); taken {
		t.Error("placeholder user should be rolled back")
	}
}

func TestUpdateGroupBlankNameFallsBackToDefault(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	starosta := createUser(t, s, "lead@x.com", models.RoleStarosta, true)
	group, _ := s.GetOrCreateStarostaGroup(ctx, starosta)
	lead, err := s.GetUserByID(ctx, starosta.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := models.DefaultGroupName(lead.FirstName)

	for _, name := range []string{"KN-21", "", "KN-21", "   "} {
		group.Starosta = nil
		if err := s.UpdateGroup(ctx, group, GroupUpdate{Name: &name}); err != nil {
			t.Fatal(err)
		}
		got, _ := s.GetGroup(ctx, group.ID)
		expected := name
		if name == "" || name == "   " {
			expected = want
		}
		if got.Name != expected {
			t.Errorf("after setting %q: Name = %q, want %q", name, got.Name, expected)
		}
	}
}
