// Package local is a self-hosted identity provider: accounts in Postgres,
// bcrypt passwords, JWT session tokens, one-time email tokens in Redis and
// outgoing mail through the RabbitMQ email queue.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/oauthpopup"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/session"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
	"github.com/oksasatya/go-auth-facade/pkg/mailer"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrAccountNotFound     = repo.ErrAccountNotFound
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrWeakPassword        = errors.New("password must be at least 8 characters")
	ErrUnsupportedProvider = errors.New("unsupported popup provider")
	ErrPopupUnavailable    = errors.New("popup sign-in is not configured")
	ErrUnverifiedEmail     = errors.New("popup identity has no verified email")
)

const (
	defaultVerifyTTL  = 24 * time.Hour
	defaultResetTTL   = 30 * time.Minute
	defaultSessionTTL = 24 * time.Hour
	minPasswordLen    = 8
)

// EmailPublisher enqueues an email job. *helpers.RabbitPublisher implements it.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Options tunes the provider. Zero values take the defaults.
type Options struct {
	Links      mailer.Links
	VerifyTTL  time.Duration
	ResetTTL   time.Duration
	SessionTTL time.Duration
}

type IdentityProvider struct {
	Accounts repo.AccountRepository
	Redis    *redis.Client
	JWT      *helpers.JWTManager
	// Mail may be nil; links are then only logged.
	Mail    EmailPublisher
	Popup   oauthpopup.Runner
	Session *session.Tracker
	Logger  *logrus.Logger
	opts    Options
}

func NewIdentityProvider(accounts repo.AccountRepository, rdb *redis.Client, jwt *helpers.JWTManager, mail EmailPublisher, popup oauthpopup.Runner, tracker *session.Tracker, logger *logrus.Logger, opts Options) *IdentityProvider {
	if opts.VerifyTTL == 0 {
		opts.VerifyTTL = defaultVerifyTTL
	}
	if opts.ResetTTL == 0 {
		opts.ResetTTL = defaultResetTTL
	}
	if opts.SessionTTL == 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	return &IdentityProvider{
		Accounts: accounts,
		Redis:    rdb,
		JWT:      jwt,
		Mail:     mail,
		Popup:    popup,
		Session:  tracker,
		Logger:   helpers.OrStandard(logger),
		opts:     opts,
	}
}

var _ repo.IdentityProvider = (*IdentityProvider)(nil)

func (p *IdentityProvider) AuthState(ctx context.Context) <-chan *entity.Identity {
	return p.Session.Subscribe(ctx)
}

func (p *IdentityProvider) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*entity.Identity, error) {
	a, err := p.Accounts.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if a.PasswordHash == "" || !helpers.CompareHashAndPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return p.startSession(ctx, a)
}

func (p *IdentityProvider) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*entity.Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidCredentials)
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	if _, err := p.Accounts.GetByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrAccountNotFound) {
		return nil, err
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	a := &entity.Account{Email: email, PasswordHash: hash}
	if err := p.Accounts.Create(a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return p.startSession(ctx, a)
}

// SignInWithPopup links the popup identity to the account with the same
// verified email, creating a passwordless account on first use.
func (p *IdentityProvider) SignInWithPopup(ctx context.Context, provider entity.OAuthProvider) (*entity.Identity, error) {
	if provider != entity.ProviderGoogle {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	if p.Popup == nil {
		return nil, ErrPopupUnavailable
	}
	r, err := p.Popup.Run(ctx)
	if err != nil {
		return nil, err
	}
	if r.Claims.Email == "" || !r.Claims.EmailVerified {
		return nil, ErrUnverifiedEmail
	}
	email := normalizeEmail(r.Claims.Email)

	a, err := p.Accounts.GetByEmail(email)
	switch {
	case err == nil:
		if !a.EmailVerified {
			if err := p.Accounts.SetVerified(a.ID); err != nil {
				return nil, err
			}
			a.EmailVerified = true
		}
	case errors.Is(err, repo.ErrAccountNotFound):
		a = &entity.Account{Email: email, DisplayName: entity.StringPtr(r.Claims.Name), EmailVerified: true}
		if err := p.Accounts.Create(a); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
	default:
		return nil, err
	}
	return p.startSession(ctx, a)
}

func (p *IdentityProvider) CurrentUser(context.Context) (repo.CurrentUser, error) {
	s := p.Session.Current()
	if s == nil {
		return nil, nil
	}
	return &currentUser{p: p, id: s.Identity}, nil
}

func (p *IdentityProvider) SignOut(ctx context.Context) error {
	if s := p.Session.Current(); s != nil {
		if err := helpers.RedisDel(ctx, p.Redis, helpers.KeyUserSession(s.Identity.UID)); err != nil {
			p.Logger.WithError(err).WithField("uid", s.Identity.UID).Warn("session delete failed")
		}
	}
	p.Session.Clear(ctx)
	return nil
}

// startSession issues a token pair, records the server-side session and makes
// the account the current user.
func (p *IdentityProvider) startSession(ctx context.Context, a *entity.Account) (*entity.Identity, error) {
	sid := uuid.NewString()
	access, _, err := p.JWT.GenerateAccessToken(a.ID, sid)
	if err != nil {
		return nil, err
	}
	refresh, _, err := p.JWT.GenerateRefreshToken(a.ID, sid)
	if err != nil {
		return nil, err
	}

	key := helpers.KeyUserSession(a.ID)
	pipe := p.Redis.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    a.ID,
		"email":      a.Email,
		"sid":        sid,
		"logged_in":  true,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
	pipe.Expire(ctx, key, p.opts.SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}

	id := a.Identity()
	p.Session.Set(ctx, session.Session{Identity: *id, IDToken: access, RefreshToken: refresh})
	return id, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type currentUser struct {
	p  *IdentityProvider
	id entity.Identity
}

func (u *currentUser) Identity() *entity.Identity {
	id := u.id
	return &id
}

func (u *currentUser) SendEmailVerification(ctx context.Context) error {
	return u.p.SendVerificationFor(ctx, u.id.UID)
}
