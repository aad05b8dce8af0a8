package container

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-facade/config"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/firebase"
	pginfra "github.com/oksasatya/go-auth-facade/internal/infrastructure/postgres"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/search"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
)

// Init connects the clients the configured backends need and registers them.
// The returned cleanup closes everything Init opened.
func Init(ctx context.Context, c *config.Config, l *logrus.Logger) (func(), error) {
	SetConfig(c)
	SetLogger(l)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (func(), error) {
		cleanup()
		return nil, err
	}

	rdb := helpers.NewRedisClient(c.RedisAddr, c.RedisPassword, c.RedisDB)
	closers = append(closers, func() { _ = rdb.Close() })
	SetRedis(rdb)
	SetJWT(helpers.NewJWTManager(c.JWTAccessSecret, c.JWTRefreshSecret, c.AccessTTL, c.RefreshTTL))

	if c.NeedsPostgres() {
		pool, err := pginfra.NewPool(ctx, c.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:    c.DBMaxConns,
			MinConns:    c.DBMinConns,
			MaxConnLife: c.DBMaxConnLife,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to connect to postgres: %w", err))
		}
		closers = append(closers, pool.Close)
		SetPGPool(pool)
	}

	if c.IdentityBackend == config.BackendLocal && c.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(c.RabbitMQURL, c.RabbitMQEmailQueue)
		if err != nil {
			// links are still logged by the local provider
			l.WithError(err).Warn("rabbitmq unavailable, verification and reset emails will not be sent")
		} else {
			closers = append(closers, pub.Close)
			SetRabbitPub(pub)
		}
	}

	if c.SearchEnabled {
		es, err := helpers.NewESClient(c.ESAddrs(), c.ElasticsearchUser, c.ElasticsearchPass)
		if err != nil {
			return fail(fmt.Errorf("failed to create elasticsearch client: %w", err))
		}
		if err := helpers.EnsureIndex(ctx, es, c.ESUsersIndex, search.Mapping); err != nil {
			l.WithError(err).WithField("index", c.ESUsersIndex).Warn("es index setup failed")
		}
		SetES(es)
	}

	if c.IdentityBackend == config.BackendFirebase || c.ProfileBackend == config.BackendFirestore {
		app, err := firebase.NewApp(ctx, firebase.Config{
			ProjectID:       c.FirebaseProjectID,
			CredentialsFile: c.FirebaseCredentialsFile,
			APIKey:          c.FirebaseAPIKey,
		})
		if err != nil {
			return fail(err)
		}
		SetFirebase(app)
		if c.ProfileBackend == config.BackendFirestore {
			fs, err := app.Firestore(ctx)
			if err != nil {
				return fail(err)
			}
			closers = append(closers, func() { _ = fs.Close() })
			SetFirestore(fs)
		}
	}

	return cleanup, nil
}
