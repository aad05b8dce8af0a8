package container

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oksasatya/go-auth-facade/config"
	"github.com/oksasatya/go-auth-facade/internal/application"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/firebase"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/local"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/memory"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/oauthpopup"
	pginfra "github.com/oksasatya/go-auth-facade/internal/infrastructure/postgres"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/search"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/session"
	"github.com/oksasatya/go-auth-facade/pkg/mailer"
)

var errNotInitialized = errors.New("container: Init has not been called")

// NewAuthService builds the facade over the configured identity and profile backends.
func NewAuthService(ctx context.Context) (*application.Service, error) {
	idp, err := NewIdentityProvider(ctx)
	if err != nil {
		return nil, err
	}
	store, err := NewProfileStore()
	if err != nil {
		return nil, err
	}
	return application.NewService(idp, store, GetLogger()), nil
}

// NewIdentityProvider returns the configured provider with the device session restored.
func NewIdentityProvider(ctx context.Context) (repo.IdentityProvider, error) {
	if cfg == nil {
		return nil, errNotInitialized
	}
	switch cfg.IdentityBackend {
	case config.BackendLocal:
		return NewLocalProvider(ctx)
	case config.BackendFirebase:
		return newFirebaseProvider(ctx)
	default:
		return nil, fmt.Errorf("unknown IDENTITY_BACKEND %q", cfg.IdentityBackend)
	}
}

// NewLocalProvider builds the self-hosted provider for the configured device session.
func NewLocalProvider(ctx context.Context) (*local.IdentityProvider, error) {
	if cfg == nil {
		return nil, errNotInitialized
	}
	return newLocalProvider(newTracker(ctx))
}

// NewLinkService builds the local provider for the HTTP server. It has no device
// session of its own.
func NewLinkService() (*local.IdentityProvider, error) {
	if cfg == nil {
		return nil, errNotInitialized
	}
	return newLocalProvider(session.NewTracker(nil, "", GetLogger()))
}

func newLocalProvider(tracker *session.Tracker) (*local.IdentityProvider, error) {
	if pgPool == nil || redisClient == nil {
		return nil, errNotInitialized
	}
	var mail local.EmailPublisher
	if pub := GetRabbitPub(); pub != nil {
		mail = pub
	}
	return local.NewIdentityProvider(
		pginfra.NewAccountRepository(pgPool),
		redisClient,
		jwtManager,
		mail,
		newPopup(),
		tracker,
		GetLogger(),
		local.Options{
			Links: mailer.Links{
				AppName:     cfg.AppName,
				CompanyName: cfg.CompanyName,
				SupportURL:  cfg.SupportURL,
				VerifyURL:   cfg.VerifyEmailURL,
				ResetURL:    cfg.ResetPasswordURL,
			},
			SessionTTL: cfg.RefreshTTL,
		},
	), nil
}

func newFirebaseProvider(ctx context.Context) (*firebase.IdentityProvider, error) {
	app := GetFirebase()
	if app == nil {
		return nil, errNotInitialized
	}
	svc, err := app.Toolkit(ctx)
	if err != nil {
		return nil, err
	}
	var revoker firebase.TokenRevoker
	if ac, err := app.Auth(ctx); err != nil {
		GetLogger().WithError(err).Warn("firebase admin auth unavailable, sign-out will not revoke tokens")
	} else {
		revoker = ac
	}
	return firebase.NewIdentityProvider(svc, revoker, newPopup(), newTracker(ctx), GetLogger()), nil
}

// NewProfileStore returns the configured store, wrapped for search indexing when enabled.
func NewProfileStore() (repo.ProfileStore, error) {
	if cfg == nil {
		return nil, errNotInitialized
	}
	var store repo.ProfileStore
	switch cfg.ProfileBackend {
	case config.BackendPostgres:
		if pgPool == nil {
			return nil, errNotInitialized
		}
		store = pginfra.NewProfileStore(pgPool, redisClient, GetLogger())
	case config.BackendFirestore:
		fs := GetFirestore()
		if fs == nil {
			return nil, errNotInitialized
		}
		store = firebase.NewProfileStore(fs, GetLogger())
	case config.BackendMemory:
		store = memory.NewProfileStore()
	default:
		return nil, fmt.Errorf("unknown PROFILE_BACKEND %q", cfg.ProfileBackend)
	}
	if esClient != nil {
		store = search.NewIndexedProfileStore(store, esClient, cfg.ESUsersIndex, GetLogger())
	}
	return store, nil
}

// NewProfileSearch returns the search side of the indexing decorator.
func NewProfileSearch() (*search.IndexedProfileStore, error) {
	if esClient == nil {
		return nil, errors.New("search is disabled, set SEARCH_ENABLED=true")
	}
	store, err := NewProfileStore()
	if err != nil {
		return nil, err
	}
	return store.(*search.IndexedProfileStore), nil
}

func newTracker(ctx context.Context) *session.Tracker {
	var store session.Store
	if redisClient != nil {
		store = session.NewRedisStore(redisClient, cfg.SessionTTL)
	}
	t := session.NewTracker(store, session.Key(cfg.SessionDevice), GetLogger())
	if err := t.Restore(ctx); err != nil {
		GetLogger().WithError(err).WithField("device", cfg.SessionDevice).Warn("session restore failed, starting signed out")
	}
	return t
}

// newPopup defers OIDC discovery to the first popup sign-in.
func newPopup() oauthpopup.Runner {
	if cfg.GoogleClientID == "" {
		return nil
	}
	return &lazyPopup{}
}

type lazyPopup struct {
	once sync.Once
	flow *oauthpopup.Flow
	err  error
}

func (l *lazyPopup) Run(ctx context.Context) (*oauthpopup.Result, error) {
	l.once.Do(func() {
		l.flow, l.err = oauthpopup.NewGoogleFlow(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, GetLogger())
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.flow.Run(ctx)
}
