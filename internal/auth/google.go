package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/starosta-app/starosta-back/internal/config"
	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/httpx"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateCookie  = "oauth_state"
)

// GoogleConfig returns nil when no client id is configured, which disables
// Google sign-in.
func GoogleConfig(cfg *config.Config) *oauth2.Config {
	if cfg.GoogleClientID == "" {
		return nil
	}
	return &oauth2.Config{
		RedirectURL:  cfg.GoogleRedirectURL,
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleSecret,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: google.Endpoint,
	}
}

// GoogleLogin godoc
// @Summary      Start Google sign-in
// @Tags         auth
// @Success      307
// @Failure      404  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Router       /auth/google/login [get]
func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.Google == nil {
		httpx.NotFound(c, "Google sign-in")
		return
	}
	state := uuid.NewString()
	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.Google.AuthCodeURL(state))
}

// GoogleCallback godoc
// @Summary      Finish Google sign-in for an existing account
// @Tags         auth
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "State"
// @Success      200    {object}  httpx.Envelope{data=LoginResponse}
// @Failure      400    {object}  httpx.Envelope{data=httpx.ErrorData}
// @Router       /auth/google/callback [get]
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.Google == nil {
		httpx.NotFound(c, "Google sign-in")
		return
	}

	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		httpx.BadRequest(c, "An error occurred during login.", "Invalid OAuth state.")
		return
	}

	ctx := c.Request.Context()
	token, err := h.Google.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.Log.Warn("google token exchange", zap.Error(err))
		httpx.BadRequest(c, "An error occurred during login.", "Failed to exchange token.")
		return
	}

	email, err := fetchGoogleEmail(h.Google.Client(ctx, token))
	if err != nil {
		h.Log.Warn("google userinfo", zap.Error(err))
		httpx.BadRequest(c, "An error occurred during login.", "Failed to get user info.")
		return
	}

	user, err := h.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		httpx.BadRequest(c, "User not found.", "Username does not exist.")
		return
	}
	if err != nil {
		httpx.Error(c, h.Log, err, "User")
		return
	}
	if !user.IsActive {
		httpx.BadRequest(c, "Account pending approval.", "Account pending approval.")
		return
	}

	h.respondWithTokens(c, user, "User logged in successfully.")
}

func fetchGoogleEmail(client *http.Client) (string, error) {
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo: bad status %s", resp.Status)
	}

	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.Email == "" || !info.VerifiedEmail {
		return "", errors.New("userinfo: no verified email")
	}
	return info.Email, nil
}
