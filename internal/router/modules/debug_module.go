package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-auth-facade/internal/interface/http"
	"github.com/oksasatya/go-auth-facade/internal/interface/middleware"
)

// DebugModule serves health and, when enabled, expvar metrics.
type DebugModule struct {
	Health      *handlers.HealthHandler
	Redis       *redis.Client
	VarsEnabled bool
}

func NewDebugModule(h *handlers.HealthHandler, rdb *redis.Client, varsEnabled bool) *DebugModule {
	return &DebugModule{Health: h, Redis: rdb, VarsEnabled: varsEnabled}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/healthz", rl, m.Health.Healthz)
	if m.VarsEnabled {
		rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	}
}
