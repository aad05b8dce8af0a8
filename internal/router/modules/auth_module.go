package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-auth-facade/internal/interface/http"
	"github.com/oksasatya/go-auth-facade/internal/interface/middleware"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
)

// AuthModule serves the local provider's email links and session check.
type AuthModule struct {
	Handler   *handlers.AuthHandler
	JWT       *helpers.JWTManager
	Redis     *redis.Client
	PerMinute int
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager, rdb *redis.Client, perMinute int) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt, Redis: rdb, PerMinute: perMinute}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	perPath := middleware.RateLimit(m.Redis, m.PerMinute, time.Minute, middleware.KeyByIPAndPath(), nil)
	// reset init sends mail, so it gets a much tighter budget
	resetInit := middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/verify/confirm", perPath, m.Handler.VerifyConfirm)
	rg.POST("/auth/reset/init", resetInit, m.Handler.ResetInit)
	rg.POST("/auth/reset/confirm", perPath, m.Handler.ResetConfirm)

	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(m.Redis, m.JWT))
	auth.Use(middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/verify/init", m.Handler.VerifyInit)
		auth.GET("/session", m.Handler.Session)
	}
}
