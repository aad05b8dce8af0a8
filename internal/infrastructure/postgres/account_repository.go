package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	"github.com/oksasatya/go-auth-facade/internal/domain/repository"
)

var ErrNotFound = repository.ErrAccountNotFound

const accountColumns = `id::text, email, password_hash, display_name, email_verified, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(a *entity.Account) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, display_name, email_verified)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at, updated_at
	`, a.Email, a.PasswordHash, a.DisplayName, a.EmailVerified)

	return row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepository) GetByID(id string) (*entity.Account, error) {
	return r.getOne(`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) GetByEmail(email string) (*entity.Account, error) {
	return r.getOne(`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
}

func (r *AccountRepository) getOne(query string, arg string) (*entity.Account, error) {
	ctx := context.Background()
	a := &entity.Account{}
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.DisplayName, &a.EmailVerified, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) SetVerified(id string) error {
	return r.exec(`UPDATE accounts SET email_verified = true, updated_at = $2 WHERE id = $1`, id, time.Now())
}

func (r *AccountRepository) UpdatePassword(id, hash string) error {
	return r.exec(`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, time.Now())
}

func (r *AccountRepository) exec(query string, args ...any) error {
	res, err := r.pool.Exec(context.Background(), query, args...)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
