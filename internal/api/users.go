package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starosta-app/starosta-back/internal/auth"
	"github.com/starosta-app/starosta-back/internal/authz"
	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/httpx"
	"github.com/starosta-app/starosta-back/internal/models"
)

// Roles godoc
// @Summary      List user roles
// @Tags         user
// @Produce      json
// @Success      200  {object}  httpx.Envelope{data=RolesResponse}
// @Router       /user/roles [get]
func (h *Handler) Roles(c *gin.Context) {
	httpx.OK(c, RolesResponse{Roles: models.Roles()})
}

func (h *Handler) profile(c *gin.Context, u *models.User) (*ProfileResponse, error) {
	group, err := h.Store.CurrentGroup(c.Request.Context(), u)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{UserSummary: toUserSummary(u), Group: toGroupResponse(group)}, nil
}

// GetProfile godoc
// @Summary      Get the current user's profile
// @Tags         user
// @Produce      json
// @Success      200  {object}  httpx.Envelope{data=ProfileResponse}
// @Failure      401  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	resp, err := h.profile(c, auth.CurrentUser(c))
	if err != nil {
		h.fail(c, err, "User")
		return
	}
	httpx.OK(c, resp)
}

// UpdateProfile godoc
// @Summary      Update the current user's profile
// @Description  Partial update. The role cannot be changed here.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      ProfileUpdateRequest  true  "Fields to change"
// @Success      200   {object}  httpx.Envelope{data=ProfileResponse}
// @Failure      400   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/profile [patch]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "", httpx.ValidationMessages(err)...)
		return
	}

	user := auth.CurrentUser(c)
	ctx := c.Request.Context()
	err := h.Store.Tx(ctx, func(tx *db.Store) error {
		if req.Email != nil {
			email := models.NormalizeEmail(*req.Email)
			taken, err := tx.EmailTaken(ctx, email, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return db.ErrEmailTaken
			}
			user.Email = email
		}
		if req.Username != nil {
			taken, err := tx.UsernameTaken(ctx, *req.Username, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return &validationError{messages: []string{"A user with that username already exists."}}
			}
			user.Username = *req.Username
		}
		if req.FirstName != nil {
			user.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			user.LastName = *req.LastName
		}
		return tx.SaveUser(ctx, user)
	})
	if err != nil {
		h.respondErr(c, err, "User")
		return
	}

	resp, err := h.profile(c, user)
	if err != nil {
		h.fail(c, err, "User")
		return
	}
	httpx.OK(c, resp)
}

// DeleteProfile godoc
// @Summary      Delete the current user
// @Description  Also deletes the group the user leads, its events and the user's memberships.
// @Tags         user
// @Success      204
// @Security     BearerAuth
// @Router       /user/profile [delete]
func (h *Handler) DeleteProfile(c *gin.Context) {
	user := auth.CurrentUser(c)
	if err := h.Store.DeleteUser(c.Request.Context(), user.ID); err != nil {
		h.fail(c, err, "User")
		return
	}
	h.Log.Info("user deleted", zap.Uint("user_id", user.ID))
	httpx.Respond(c, http.StatusNoContent, nil, "")
}

// AvailableStudents godoc
// @Summary      List active students who are in no group
// @Tags         user
// @Produce      json
// @Success      200  {object}  httpx.Envelope{data=[]UserSummary}
// @Failure      403  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/available-students [get]
func (h *Handler) AvailableStudents(c *gin.Context) {
	if !authz.IsStarosta(auth.CurrentUser(c)) {
		httpx.Forbidden(c)
		return
	}
	users, err := h.Store.AvailableStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err, "User")
		return
	}
	out := make([]UserSummary, 0, len(users))
	for i := range users {
		out = append(out, toUserSummary(&users[i]))
	}
	httpx.OK(c, out)
}

// YourGroup godoc
// @Summary      Get the current user's group
// @Tags         user
// @Produce      json
// @Success      200  {object}  httpx.Envelope{data=GroupResponse}
// @Failure      404  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/your-group [get]
func (h *Handler) YourGroup(c *gin.Context) {
	group, err := h.Store.CurrentGroup(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		h.fail(c, err, "Group")
		return
	}
	if group == nil {
		httpx.Fail(c, http.StatusNotFound, "", "You are not in a group")
		return
	}
	httpx.OK(c, toGroupResponse(group))
}
