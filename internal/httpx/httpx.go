// Package httpx renders the {"data": ..., "message": ...} envelope used by
// every endpoint and maps domain errors onto it.
package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starosta-app/starosta-back/internal/authz"
	"github.com/starosta-app/starosta-back/internal/db"
)

type Envelope struct {
	Data    any     `json:"data"`
	Message *string `json:"message"`
}

type ErrorData struct {
	Errors []string `json:"errors"`
}

func message(msg string) *string {
	if msg == "" {
		return nil
	}
	return &msg
}

func Respond(c *gin.Context, status int, data any, msg string) {
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	c.JSON(status, Envelope{Data: data, Message: message(msg)})
}

func OK(c *gin.Context, data any) {
	Respond(c, http.StatusOK, data, "")
}

// Fail aborts the request with the error envelope. errs are shown in order.
func Fail(c *gin.Context, status int, msg string, errs ...string) {
	if errs == nil {
		errs = []string{}
	}
	c.AbortWithStatusJSON(status, Envelope{Data: ErrorData{Errors: errs}, Message: message(msg)})
}

func BadRequest(c *gin.Context, msg string, errs ...string) {
	Fail(c, http.StatusBadRequest, msg, errs...)
}

func NotFound(c *gin.Context, what string) {
	Fail(c, http.StatusNotFound, "", what+" not found")
}

func Unauthorized(c *gin.Context, reason string) {
	Fail(c, http.StatusUnauthorized, "", reason)
}

func Forbidden(c *gin.Context) {
	Fail(c, http.StatusForbidden, "", authz.ErrForbidden.Error())
}

// Error maps err onto the envelope. what names the resource for not-found
// responses ("Group", "Event"). Unmapped errors are logged and reported as 500.
func Error(c *gin.Context, log *zap.Logger, err error, what string) {
	var unknown *db.UnknownUserError
	switch {
	case errors.Is(err, db.ErrNotFound):
		NotFound(c, what)
	case errors.Is(err, authz.ErrForbidden):
		Forbidden(c)
	case errors.Is(err, db.ErrEmailTaken):
		BadRequest(c, "", "A user with this email already exists.")
	case errors.As(err, &unknown):
		BadRequest(c, "", capitalizeFirst(unknown.Error())+".")
	default:
		log.Error("request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
		Fail(c, http.StatusInternalServerError, "", "Internal server error")
	}
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
