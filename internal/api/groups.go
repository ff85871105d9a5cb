package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starosta-app/starosta-back/internal/authz"
	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/httpx"
	"github.com/starosta-app/starosta-back/internal/models"
)

// GetGroup godoc
// @Summary      Get a group
// @Tags         groups
// @Produce      json
// @Param        pk   path      int  true  "Group ID"
// @Success      200  {object}  httpx.Envelope{data=GroupResponse}
// @Failure      403  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk} [get]
func (h *Handler) GetGroup(c *gin.Context) {
	var resp *GroupResponse
	err := h.withGroup(c, authz.Read, func(_ *db.Store, group *models.Group) error {
		resp = toGroupResponse(group)
		return nil
	})
	if err != nil {
		h.fail(c, err, "Group")
		return
	}
	httpx.OK(c, resp)
}

// UpdateGroup godoc
// @Summary      Rename a group or replace its students
// @Description  "students" replaces the whole member set. "remove_students" is not supported.
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        pk    path      int                 true  "Group ID"
// @Param        body  body      GroupUpdateRequest  true  "Changes"
// @Success      200   {object}  httpx.Envelope{data=GroupResponse}
// @Failure      400   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      403   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk} [patch]
func (h *Handler) UpdateGroup(c *gin.Context) {
	ctx := c.Request.Context()
	var resp *GroupResponse
	err := h.withGroup(c, authz.Write, func(tx *db.Store, group *models.Group) error {
		var req GroupUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return &validationError{messages: httpx.ValidationMessages(err)}
		}
		if req.RemoveStudents != nil {
			return &validationError{messages: []string{
				"Remove students is not supported. Send the full students list instead.",
			}}
		}
		upd := db.GroupUpdate{Name: req.Name, StudentIDs: req.Students}
		if err := tx.UpdateGroup(ctx, group, upd); err != nil {
			return err
		}
		resp = toGroupResponse(group)
		return nil
	})
	if err != nil {
		h.respondErr(c, err, "Group")
		return
	}
	httpx.OK(c, resp)
}

// CreateInvite godoc
// @Summary      Invite a student into a group
// @Description  Creates an inactive student, adds them to the group and returns an invite code. No e-mail is sent.
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        pk    path      int            true  "Group ID"
// @Param        body  body      InviteRequest  true  "Invitee"
// @Success      200   {object}  httpx.Envelope{data=InviteResponse}
// @Failure      400   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      403   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk}/invite [post]
func (h *Handler) CreateInvite(c *gin.Context) {
	ctx := c.Request.Context()
	var invite *models.UserInvite
	err := h.withGroup(c, authz.Write, func(tx *db.Store, group *models.Group) error {
		var req InviteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return &validationError{messages: httpx.ValidationMessages(err)}
		}
		var err error
		invite, err = tx.CreateInvite(ctx, db.InviteInput{
			Email:     req.Email,
			GroupID:   group.ID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      models.RoleStudent,
		})
		return err
	})
	if err != nil {
		h.respondErr(c, missing("Group", err), "Group")
		return
	}

	// Delivery of the code is left to an outside mailer.
	h.Log.Info("invite created",
		zap.String("group_id", c.Param("pk")),
		zap.Uint("user_id", invite.UserID),
	)
	httpx.Respond(c, http.StatusOK, InviteResponse{User: toUserSummary(&invite.User), Code: invite.Code}, "")
}
