package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/oksasatya/go-auth-facade/config"
	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/postgres"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
)

func main() {
	email := flag.String("email", "demo@example.com", "account email")
	password := flag.String("password", "password123", "account password")
	name := flag.String("name", "demoUser", "display name")
	flag.Parse()

	*email = strings.ToLower(strings.TrimSpace(*email))

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	accounts := postgres.NewAccountRepository(pool)
	existing, err := accounts.GetByEmail(*email)
	switch {
	case err == nil:
		fmt.Printf("account exists: id=%s email=%s\n", existing.ID, existing.Email)
		return
	case !errors.Is(err, postgres.ErrNotFound):
		logger.WithError(err).Fatal("failed to look up account")
	}

	hash, err := helpers.HashPassword(*password)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}
	acc := &entity.Account{
		Email:         *email,
		PasswordHash:  hash,
		DisplayName:   entity.StringPtr(*name),
		EmailVerified: true,
	}
	if err := accounts.Create(acc); err != nil {
		logger.WithError(err).Fatal("failed to seed account")
	}
	fmt.Printf("seeded account: id=%s email=%s name=%s password=%s\n", acc.ID, acc.Email, *name, *password)
}
