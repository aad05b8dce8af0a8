package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
)

// Service is the auth facade: a current-profile stream plus thin wrappers over
// the identity provider.
//
// Every operation logs and swallows provider failures. Callers get nil (or
// nothing) back and cannot tell a failure from an absent result.
type Service struct {
	IdP    repo.IdentityProvider
	Store  repo.ProfileStore
	Logger *logrus.Logger
}

func NewService(idp repo.IdentityProvider, store repo.ProfileStore, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{IdP: idp, Store: store, Logger: logger}
}

// ResetPassword asks the provider to mail a password-reset link to email.
func (s *Service) ResetPassword(ctx context.Context, email string) {
	if err := s.IdP.SendPasswordResetEmail(ctx, email); err != nil {
		s.Logger.WithError(err).WithField("op", "reset_password").Error("provider operation failed")
	}
}

// LoginWithPopup runs the interactive Google sign-in. A closed or blocked popup
// and a real error both yield nil.
func (s *Service) LoginWithPopup(ctx context.Context) *entity.Identity {
	id, err := s.IdP.SignInWithPopup(ctx, entity.ProviderGoogle)
	if err != nil {
		s.Logger.WithError(err).WithField("op", "login_popup").Error("provider operation failed")
		return nil
	}
	return id
}

// Signup creates the account and sends a verification email for the new
// session. Failure at either step yields nil.
func (s *Service) Signup(ctx context.Context, email, password string) *entity.Identity {
	id, err := s.IdP.CreateUserWithEmailAndPassword(ctx, email, password)
	if err != nil {
		s.Logger.WithError(err).WithField("op", "signup").Error("provider operation failed")
		return nil
	}
	if err := s.sendVerification(ctx); err != nil {
		s.Logger.WithError(err).WithField("op", "signup").Error("provider operation failed")
		return nil
	}
	return id
}

// Login signs in with a password. On success the profile upsert is started in
// the background and not awaited: it is not ordered against concurrent
// profile reads, and it outlives ctx.
func (s *Service) Login(ctx context.Context, email, password string) *entity.Identity {
	id, err := s.IdP.SignInWithEmailAndPassword(ctx, email, password)
	if err != nil {
		s.Logger.WithError(err).WithField("op", "login").Error("provider operation failed")
		return nil
	}
	s.updateUserData(context.WithoutCancel(ctx), id)
	return id
}

// SendVerificationEmail mails a verification link to the signed-in user, if any.
func (s *Service) SendVerificationEmail(ctx context.Context) {
	if err := s.sendVerification(ctx); err != nil {
		s.Logger.WithError(err).WithField("op", "send_verification").Error("provider operation failed")
	}
}

func (s *Service) sendVerification(ctx context.Context) error {
	u, err := s.IdP.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	return u.SendEmailVerification(ctx)
}

// Logout ends the current session.
func (s *Service) Logout(ctx context.Context) {
	if err := s.IdP.SignOut(ctx); err != nil {
		s.Logger.WithError(err).WithField("op", "logout").Error("provider operation failed")
	}
}

// updateUserData merge-writes the identity's profile document. The returned
// channel yields the write result once and closes; it is nil when id is nil,
// in which case no document is touched.
func (s *Service) updateUserData(ctx context.Context, id *entity.Identity) <-chan error {
	if id == nil {
		s.Logger.Warn("no authenticated user, profile not written")
		return nil
	}
	ref := s.Store.Doc(entity.ProfileDocPath(id.UID))
	profile := entity.ProfileFromIdentity(*id)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := ref.Set(ctx, profile, repo.SetOptions{Merge: true})
		if err != nil {
			s.Logger.WithError(err).WithField("path", ref.Path()).Error("profile upsert failed")
		}
		done <- err
	}()
	return done
}
