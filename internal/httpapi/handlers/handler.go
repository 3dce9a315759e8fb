package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/imposterai/imposter/internal/ai"
	"github.com/imposterai/imposter/internal/chat"
	"github.com/imposterai/imposter/internal/config"
	"github.com/imposterai/imposter/internal/httpapi/middleware"
	"github.com/imposterai/imposter/internal/store/redisstore"
)

type Handler struct {
	DB       *gorm.DB
	Cfg      config.Config
	Redis    *redisstore.Store
	Registry *ai.Registry
	Repo     *chat.Repo
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, registry *ai.Registry) *Handler {
	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Redis:    rds,
		Registry: registry,
		Repo:     chat.NewRepo(db),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}

// provider resolves the configured gateway; the empty model selects each
// factory's configured default.
func (h *Handler) provider(ctx context.Context) (ai.Provider, error) {
	return h.Registry.Get(ctx, h.Cfg.AIProvider, "")
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
