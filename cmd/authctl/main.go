package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oksasatya/go-auth-facade/config"
	"github.com/oksasatya/go-auth-facade/internal/cli"
	"github.com/oksasatya/go-auth-facade/internal/container"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(cli.Deps{
		Setup: func(ctx context.Context) (func(), error) {
			cfg := config.Load()
			logger := helpers.NewLogger(cfg.AppName+"-cli", cfg.Env)
			return container.Init(ctx, cfg, logger)
		},
		Facade: func(ctx context.Context) (cli.Facade, error) {
			svc, err := container.NewAuthService(ctx)
			if err != nil {
				return nil, err
			}
			return svc, nil
		},
		Searcher: func() (cli.Searcher, error) {
			s, err := container.NewProfileSearch()
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
