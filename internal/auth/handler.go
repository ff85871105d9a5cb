package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/httpx"
	"github.com/starosta-app/starosta-back/internal/models"
)

type Handler struct {
	Store  *db.Store
	Tokens *Tokens
	Log    *zap.Logger
	Google *oauth2.Config

	now func() time.Time
}

func NewHandler(store *db.Store, tokens *Tokens, google *oauth2.Config, log *zap.Logger) *Handler {
	return &Handler{Store: store, Tokens: tokens, Google: google, Log: log, now: time.Now}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,loose_email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
}

type RegisterRequest struct {
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,loose_email,max=254"`
	Password  string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// Login godoc
// @Summary      Log in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "Credentials"
// @Success      200   {object}  httpx.Envelope{data=LoginResponse}
// @Failure      400   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "An error occurred during login.", httpx.ValidationMessages(err)...)
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, db.ErrNotFound) {
		httpx.BadRequest(c, "User not found.", "Username does not exist.")
		return
	}
	if err != nil {
		httpx.Error(c, h.Log, err, "User")
		return
	}

	if !user.CheckPassword(req.Password) {
		httpx.BadRequest(c, "Invalid password.", "Invalid password.")
		return
	}
	if !user.IsActive {
		httpx.BadRequest(c, "Account pending approval.", "Account pending approval.")
		return
	}

	h.respondWithTokens(c, user, "User logged in successfully.")
}

func (h *Handler) respondWithTokens(c *gin.Context, user *models.User, msg string) {
	ctx := c.Request.Context()
	if err := h.Store.UpdateLastLogin(ctx, user.ID, h.now()); err != nil {
		h.Log.Warn("update last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	pair, err := h.Tokens.Issue(user)
	if err != nil {
		httpx.Error(c, h.Log, err, "User")
		return
	}

	httpx.Respond(c, http.StatusOK, LoginResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		Access:   pair.Access,
		Refresh:  pair.Refresh,
	}, msg)
}

// Register godoc
// @Summary      Register a new student account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterRequest  true  "Account"
// @Success      201   {object}  httpx.Envelope
// @Failure      400   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Router       /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "An error occurred during registration.", httpx.ValidationMessages(err)...)
		return
	}

	user := &models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.RoleStudent,
		IsActive:  true,
	}
	user.Normalize()

	if errs := ValidatePassword(req.Password, user); len(errs) > 0 {
		httpx.BadRequest(c, "", errs...)
		return
	}
	if err := user.SetPassword(req.Password); err != nil {
		httpx.Error(c, h.Log, err, "User")
		return
	}

	err := h.Store.Tx(c.Request.Context(), func(tx *db.Store) error {
		taken, err := tx.EmailTaken(c.Request.Context(), user.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return db.ErrEmailTaken
		}
		return tx.CreateUser(c.Request.Context(), user)
	})
	if err != nil {
		httpx.Error(c, h.Log, err, "User")
		return
	}

	h.Log.Info("user registered", zap.Uint("user_id", user.ID))
	httpx.Respond(c, http.StatusCreated, nil, "User registered successfully.")
}

// Refresh godoc
// @Summary      Exchange a refresh token for a new token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      RefreshRequest  true  "Refresh token"
// @Success      200   {object}  httpx.Envelope{data=TokenPair}
// @Failure      401   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Router       /auth/token/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "", httpx.ValidationMessages(err)...)
		return
	}

	userID, err := h.Tokens.ParseRefresh(req.Refresh)
	if err != nil {
		httpx.Unauthorized(c, "Token is invalid or expired.")
		return
	}

	user, err := h.Store.GetUserByID(c.Request.Context(), userID)
	if err != nil || !user.IsActive {
		httpx.Unauthorized(c, "Token is invalid or expired.")
		return
	}

	pair, err := h.Tokens.Issue(user)
	if err != nil {
		httpx.Error(c, h.Log, err, "User")
		return
	}
	httpx.OK(c, pair)
}
