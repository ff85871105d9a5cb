package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/starosta-app/starosta-back/docs"
	"github.com/starosta-app/starosta-back/internal/auth"
	"github.com/starosta-app/starosta-back/internal/config"
	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/httpx"
	"github.com/starosta-app/starosta-back/internal/logging"
)

// @title           Starosta API
// @version         1.0
// @description     Groups, invites and recurring class events for group leaders and their students.
// @host            localhost:8000
// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func SetupRouter(cfg *config.Config, store *db.Store, log *zap.Logger) *gin.Engine {
	httpx.UseJSONFieldNames()
	httpx.RegisterValidations()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authHandler := auth.NewHandler(store, tokens, auth.GoogleConfig(cfg), log)
	h := NewHandler(store, cfg.Location(), log)

	r := gin.New()
	r.Use(logging.GinLogger(log), logging.GinRecovery(log))

	r.GET("/health", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_ping_error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/token/refresh", authHandler.Refresh)
		authGroup.GET("/google/login", authHandler.GoogleLogin)
		authGroup.GET("/google/callback", authHandler.GoogleCallback)
	}

	userGroup := apiGroup.Group("/user")
	userGroup.GET("/roles", h.Roles)

	protected := userGroup.Group("")
	protected.Use(auth.AuthMiddleware(tokens, store))
	{
		protected.GET("/profile", h.GetProfile)
		protected.PATCH("/profile", h.UpdateProfile)
		protected.DELETE("/profile", h.DeleteProfile)
		protected.GET("/available-students", h.AvailableStudents)
		protected.GET("/your-group", h.YourGroup)

		protected.GET("/groups/:pk", h.GetGroup)
		protected.PATCH("/groups/:pk", h.UpdateGroup)
		protected.POST("/groups/:pk/invite", h.CreateInvite)
		protected.GET("/groups/:pk/calendar", h.Calendar)

		protected.GET("/groups/:pk/events", h.ListEvents)
		protected.POST("/groups/:pk/events", h.CreateEvent)
		protected.POST("/groups/:pk/events/import", h.ImportEvents)
		protected.GET("/groups/:pk/events/:event_id", h.GetEvent)
		protected.PATCH("/groups/:pk/events/:event_id", h.UpdateEvent)
		protected.DELETE("/groups/:pk/events/:event_id", h.DeleteEvent)
	}

	return r
}
