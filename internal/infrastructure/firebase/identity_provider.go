package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/identitytoolkit/v3"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/oauthpopup"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/session"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
)

var (
	ErrUnsupportedProvider = errors.New("firebase: unsupported popup provider")
	ErrPopupUnavailable    = errors.New("firebase: popup sign-in is not configured")
	errNoAccountInfo       = errors.New("firebase: account lookup returned no user")
)

// TokenRevoker is satisfied by the Admin SDK auth client.
type TokenRevoker interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// IdentityProvider signs end users in against Firebase Authentication and
// keeps the resulting session in a tracker.
type IdentityProvider struct {
	toolkit toolkit
	revoker TokenRevoker
	popup   oauthpopup.Runner
	session *session.Tracker
	logger  *logrus.Logger
}

// NewIdentityProvider wires the provider. revoker and popup may be nil; without
// a popup runner SignInWithPopup fails.
func NewIdentityProvider(svc *identitytoolkit.Service, revoker TokenRevoker, popup oauthpopup.Runner, tracker *session.Tracker, logger *logrus.Logger) *IdentityProvider {
	return &IdentityProvider{
		toolkit: restToolkit{rp: svc.Relyingparty},
		revoker: revoker,
		popup:   popup,
		session: tracker,
		logger:  helpers.OrStandard(logger),
	}
}

var _ repo.IdentityProvider = (*IdentityProvider)(nil)

func (p *IdentityProvider) AuthState(ctx context.Context) <-chan *entity.Identity {
	return p.session.Subscribe(ctx)
}

func (p *IdentityProvider) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*entity.Identity, error) {
	res, err := p.toolkit.verifyPassword(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	id := &entity.Identity{
		UID:         res.LocalId,
		Email:       entity.StringPtr(res.Email),
		DisplayName: entity.StringPtr(res.DisplayName),
	}
	// verifyPassword does not report verification state; sign-in fails without it.
	info, err := p.toolkit.accountInfo(ctx, res.IdToken)
	if err != nil {
		return nil, fmt.Errorf("account lookup: %w", err)
	}
	id.EmailVerified = info.EmailVerified
	if id.DisplayName == nil {
		id.DisplayName = entity.StringPtr(info.DisplayName)
	}
	p.session.Set(ctx, session.Session{Identity: *id, IDToken: res.IdToken, RefreshToken: res.RefreshToken})
	return id, nil
}

func (p *IdentityProvider) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*entity.Identity, error) {
	res, err := p.toolkit.signup(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	id := &entity.Identity{
		UID:         res.LocalId,
		Email:       entity.StringPtr(res.Email),
		DisplayName: entity.StringPtr(res.DisplayName),
	}
	p.session.Set(ctx, session.Session{Identity: *id, IDToken: res.IdToken, RefreshToken: res.RefreshToken})
	return id, nil
}

func (p *IdentityProvider) SignInWithPopup(ctx context.Context, provider entity.OAuthProvider) (*entity.Identity, error) {
	if provider != entity.ProviderGoogle {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	if p.popup == nil {
		return nil, ErrPopupUnavailable
	}
	r, err := p.popup.Run(ctx)
	if err != nil {
		return nil, err
	}
	body := url.Values{"id_token": {r.IDToken}, "providerId": {string(provider)}}.Encode()
	res, err := p.toolkit.verifyAssertion(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("verify assertion: %w", err)
	}
	id := &entity.Identity{
		UID:           res.LocalId,
		Email:         entity.StringPtr(res.Email),
		EmailVerified: res.EmailVerified,
		DisplayName:   entity.StringPtr(res.DisplayName),
	}
	p.session.Set(ctx, session.Session{Identity: *id, IDToken: res.IdToken, RefreshToken: res.RefreshToken})
	return id, nil
}

func (p *IdentityProvider) SendPasswordResetEmail(ctx context.Context, email string) error {
	err := p.toolkit.sendOobCode(ctx, &identitytoolkit.Relyingparty{RequestType: oobPasswordReset, Email: email})
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	return nil
}

func (p *IdentityProvider) CurrentUser(context.Context) (repo.CurrentUser, error) {
	s := p.session.Current()
	if s == nil {
		return nil, nil
	}
	return &currentUser{p: p, s: *s}, nil
}

// SignOut revokes the user's refresh tokens when an admin client is present and
// always clears the local session.
func (p *IdentityProvider) SignOut(ctx context.Context) error {
	s := p.session.Current()
	if s != nil && p.revoker != nil {
		if err := p.revoker.RevokeRefreshTokens(ctx, s.Identity.UID); err != nil {
			p.logger.WithError(err).WithField("uid", s.Identity.UID).Warn("refresh token revocation failed")
		}
	}
	p.session.Clear(ctx)
	return nil
}

type currentUser struct {
	p *IdentityProvider
	s session.Session
}

func (u *currentUser) Identity() *entity.Identity {
	id := u.s.Identity
	return &id
}

func (u *currentUser) SendEmailVerification(ctx context.Context) error {
	err := u.p.toolkit.sendOobCode(ctx, &identitytoolkit.Relyingparty{RequestType: oobVerifyEmail, IdToken: u.s.IDToken})
	if err != nil {
		return fmt.Errorf("email verification: %w", err)
	}
	return nil
}
