package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/httpx"
	"github.com/starosta-app/starosta-back/internal/models"
)

const userKey = "user"

// AuthMiddleware requires a valid bearer access token belonging to an
// active user and attaches that user to the context.
func AuthMiddleware(tokens *Tokens, store *db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httpx.Unauthorized(c, "Authentication credentials were not provided.")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httpx.Unauthorized(c, "Invalid Authorization header.")
			return
		}

		userID, err := tokens.ParseAccess(parts[1])
		if err != nil {
			httpx.Unauthorized(c, "Given token not valid for any token type.")
			return
		}

		user, err := store.GetUserByID(c.Request.Context(), userID)
		if err != nil || !user.IsActive {
			httpx.Unauthorized(c, "User not found.")
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

// CurrentUser returns the user attached by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// SetCurrentUser is used by AuthMiddleware and by tests that bypass it.
func SetCurrentUser(c *gin.Context, u *models.User) {
	c.Set(userKey, u)
}
