package router

import (
	"context"

	"github.com/oksasatya/go-auth-facade/config"
	"github.com/oksasatya/go-auth-facade/internal/container"
	handlers "github.com/oksasatya/go-auth-facade/internal/interface/http"
	"github.com/oksasatya/go-auth-facade/internal/router/modules"
)

// InitModules wires every feature module from the container singletons.
// Call once during startup, after container.Init.
func InitModules(r *Registry) error {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	rdb := container.GetRedis()

	checks := map[string]handlers.Pinger{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	r.Add(modules.NewDebugModule(&handlers.HealthHandler{Checks: checks}, rdb, cfg.DebugMetricsEnabled))

	if cfg.IdentityBackend == config.BackendLocal {
		provider, err := container.NewLinkService()
		if err != nil {
			return err
		}
		r.Add(modules.NewAuthModule(handlers.NewAuthHandler(provider, logger), container.GetJWT(), rdb, cfg.RateLimitPerMinute))
	}

	if container.GetES() != nil {
		searcher, err := container.NewProfileSearch()
		if err != nil {
			return err
		}
		r.Add(modules.NewUserModule(handlers.NewUserHandler(searcher, logger), container.GetJWT(), rdb))
	}
	return nil
}
