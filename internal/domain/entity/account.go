package entity

import (
	"time"
)

// Account is a user of the self-hosted identity provider.
// PasswordHash is a bcrypt hash; it is empty for accounts created through a popup sign-in.
type Account struct {
	ID            string
	Email         string
	PasswordHash  string
	DisplayName   *string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity returns the provider-facing view of the account.
func (a *Account) Identity() *Identity {
	return &Identity{
		UID:           a.ID,
		Email:         StringPtr(a.Email),
		EmailVerified: a.EmailVerified,
		DisplayName:   a.DisplayName,
	}
}
