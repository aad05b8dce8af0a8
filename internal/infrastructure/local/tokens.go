package local

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
	"github.com/oksasatya/go-auth-facade/pkg/mailer"
)

func (p *IdentityProvider) SendPasswordResetEmail(ctx context.Context, email string) error {
	a, err := p.Accounts.GetByEmail(normalizeEmail(email))
	if err != nil {
		return err
	}
	tok, err := p.issueToken(ctx, helpers.KeyResetToken, a.ID, p.opts.ResetTTL)
	if err != nil {
		return err
	}
	job := mailer.NewPasswordResetJob(p.opts.Links, a.Email, entity.Deref(a.DisplayName), tok, p.opts.ResetTTL)
	return p.publish(ctx, job, "password reset")
}

// SendVerificationFor mails a verification link to account uid unless it is
// already verified.
func (p *IdentityProvider) SendVerificationFor(ctx context.Context, uid string) error {
	a, err := p.Accounts.GetByID(uid)
	if err != nil {
		return err
	}
	if a.EmailVerified {
		p.Logger.WithField("uid", uid).Info("email already verified")
		return nil
	}
	tok, err := p.issueToken(ctx, helpers.KeyVerifyToken, a.ID, p.opts.VerifyTTL)
	if err != nil {
		return err
	}
	job := mailer.NewVerifyEmailJob(p.opts.Links, a.Email, entity.Deref(a.DisplayName), tok, p.opts.VerifyTTL)
	return p.publish(ctx, job, "email verification")
}

func (p *IdentityProvider) issueToken(ctx context.Context, key func(string) string, uid string, ttl time.Duration) (string, error) {
	tok, err := helpers.GenToken(32)
	if err != nil {
		return "", fmt.Errorf("token generation failed: %w", err)
	}
	if err := p.Redis.Set(ctx, key(tok), uid, ttl).Err(); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return tok, nil
}

func (p *IdentityProvider) publish(ctx context.Context, job mailer.EmailJob, kind string) error {
	if p.Mail == nil {
		p.Logger.WithFields(logrus.Fields{"to": job.To, "link": job.Data["ActionURL"]}).Info(kind + " link issued, mail disabled")
		return nil
	}
	if err := p.Mail.PublishJSON(ctx, job); err != nil {
		return fmt.Errorf("enqueue %s email: %w", kind, err)
	}
	return nil
}

// ConfirmEmail consumes a verification token and marks its account verified.
func (p *IdentityProvider) ConfirmEmail(ctx context.Context, token string) error {
	uid, ok, err := helpers.RedisTake(ctx, p.Redis, helpers.KeyVerifyToken(token))
	if err != nil {
		return err
	}
	if !ok || uid == "" {
		return ErrInvalidToken
	}
	if err := p.Accounts.SetVerified(uid); err != nil {
		return err
	}
	p.refreshSession(ctx, uid, func(id *entity.Identity) { id.EmailVerified = true })
	return nil
}

// ConfirmPasswordReset consumes a reset token, sets the new password and ends
// the account's server-side session.
func (p *IdentityProvider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}
	uid, ok, err := helpers.RedisTake(ctx, p.Redis, helpers.KeyResetToken(token))
	if err != nil {
		return err
	}
	if !ok || uid == "" {
		return ErrInvalidToken
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := p.Accounts.UpdatePassword(uid, hash); err != nil {
		return err
	}
	if err := helpers.RedisDel(ctx, p.Redis, helpers.KeyUserSession(uid)); err != nil {
		p.Logger.WithError(err).WithField("uid", uid).Warn("session delete failed")
	}
	return nil
}

// refreshSession updates the tracked identity when uid is the signed-in user.
func (p *IdentityProvider) refreshSession(ctx context.Context, uid string, fn func(*entity.Identity)) {
	s := p.Session.Current()
	if s == nil || s.Identity.UID != uid {
		return
	}
	fn(&s.Identity)
	p.Session.Set(ctx, *s)
}
