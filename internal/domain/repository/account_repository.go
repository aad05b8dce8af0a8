package repository

import (
	"errors"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
)

// ErrAccountNotFound is returned by AccountRepository lookups and updates that
// match no account.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository defines storage for self-hosted accounts.
type AccountRepository interface {
	Create(a *entity.Account) error
	GetByID(id string) (*entity.Account, error)
	GetByEmail(email string) (*entity.Account, error)
	SetVerified(id string) error
	UpdatePassword(id, hash string) error
}
