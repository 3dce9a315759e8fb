package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/imposterai/imposter/internal/ai"
	"github.com/imposterai/imposter/internal/common"
	"github.com/imposterai/imposter/internal/config"
	"github.com/imposterai/imposter/internal/httpapi/handlers"
	"github.com/imposterai/imposter/internal/httpapi/middleware"
	"github.com/imposterai/imposter/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, registry *ai.Registry) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, rds, registry)

	r.GET("/ping", h.Ping)

	// personality avatars
	r.Static("/assets/avatars", cfg.AssetsDir)

	// auth
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret, tokenChecker(rds)))
	authGroup.POST("/auth/logout", h.Logout)
	authGroup.GET("/auth/me", h.Me)

	// chat (JWT required)
	authGroup.GET("/api/personalities", h.ListPersonalities)
	authGroup.GET("/api/chats", h.ListChats)
	authGroup.POST("/api/messages", h.SendMessage)
	authGroup.GET("/api/chats/:personality_id/messages", h.GetChatHistory)
	authGroup.POST("/api/chats/:personality_id/prompt", h.UpdateSystemPrompt)

	return r
}

// tokenChecker avoids handing a typed-nil interface to the middleware.
func tokenChecker(rds *redisstore.Store) middleware.TokenChecker {
	if rds == nil {
		return nil
	}
	return rds
}
