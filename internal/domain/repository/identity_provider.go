package repository

import (
	"context"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
)

// IdentityProvider is the capability set the auth facade consumes from an
// authentication backend.
type IdentityProvider interface {
	// AuthState emits the current identity (nil when signed out) immediately and
	// then on every change until ctx is done.
	AuthState(ctx context.Context) <-chan *entity.Identity
	SignInWithPopup(ctx context.Context, provider entity.OAuthProvider) (*entity.Identity, error)
	SignInWithEmailAndPassword(ctx context.Context, email, password string) (*entity.Identity, error)
	// CreateUserWithEmailAndPassword creates the account and signs it in.
	CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*entity.Identity, error)
	SendPasswordResetEmail(ctx context.Context, email string) error
	// CurrentUser returns nil, nil when nobody is signed in.
	CurrentUser(ctx context.Context) (CurrentUser, error)
	SignOut(ctx context.Context) error
}

// CurrentUser is the active session's user handle.
type CurrentUser interface {
	Identity() *entity.Identity
	SendEmailVerification(ctx context.Context) error
}
