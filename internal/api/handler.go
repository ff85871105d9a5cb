package api

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starosta-app/starosta-back/internal/auth"
	"github.com/starosta-app/starosta-back/internal/authz"
	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/httpx"
	"github.com/starosta-app/starosta-back/internal/models"
)

// Handler serves the user, group and event endpoints.
type Handler struct {
	Store    *db.Store
	Log      *zap.Logger
	Location *time.Location

	now func() time.Time
}

func NewHandler(store *db.Store, loc *time.Location, log *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Store: store, Log: log, Location: loc, now: time.Now}
}

// today is the current calendar date in the configured timezone.
func (h *Handler) today() time.Time {
	return models.DateOnly(h.now().In(h.Location))
}

// missingError reports a missing resource by name. It matches db.ErrNotFound.
type missingError struct {
	what string
}

func (e *missingError) Error() string {
	return strings.ToLower(e.what) + " not found"
}

func (e *missingError) Is(target error) bool {
	return target == db.ErrNotFound
}

func missing(what string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return &missingError{what: what}
	}
	return err
}

// fail renders err, naming the missing resource when there is one.
func (h *Handler) fail(c *gin.Context, err error, what string) {
	var m *missingError
	if errors.As(err, &m) {
		what = m.what
	}
	httpx.Error(c, h.Log, err, what)
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// loadGroup looks the group up first and only then checks access against it,
// so a missing group is always reported as 404.
func loadGroup(ctx context.Context, tx *db.Store, user *models.User, groupID uint, access authz.Access) (*models.Group, error) {
	group, err := tx.GetGroup(ctx, groupID)
	if err != nil {
		return nil, missing("Group", err)
	}
	var current *models.Group
	if !user.IsSuperuser {
		current, err = tx.CurrentGroup(ctx, user)
		if err != nil {
			return nil, err
		}
	}
	if err := authz.Check(access, user, current, group); err != nil {
		return nil, err
	}
	return group, nil
}

// withGroup parses :pk and runs fn inside one transaction after the group
// has been loaded and access checked.
func (h *Handler) withGroup(c *gin.Context, access authz.Access, fn func(tx *db.Store, group *models.Group) error) error {
	groupID, ok := idParam(c, "pk")
	if !ok {
		return &missingError{what: "Group"}
	}
	user := auth.CurrentUser(c)
	ctx := c.Request.Context()
	return h.Store.Tx(ctx, func(tx *db.Store) error {
		group, err := loadGroup(ctx, tx, user, groupID, access)
		if err != nil {
			return err
		}
		return fn(tx, group)
	})
}

// validationError carries field messages out of a transaction so it rolls back.
type validationError struct {
	messages []string
}

func (e *validationError) Error() string {
	return strings.Join(e.messages, " ")
}

// respondErr renders validation failures as 400 and everything else through fail.
func (h *Handler) respondErr(c *gin.Context, err error, what string) {
	var v *validationError
	if errors.As(err, &v) {
		httpx.BadRequest(c, "", v.messages...)
		return
	}
	h.fail(c, err, what)
}
