package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
)

var ErrBadPath = errors.New("profile path must be users/{uid}")

// ProfileStore keeps profiles in the profiles table. Writes are announced on a
// redis channel per document so ValueChanges can follow them.
type ProfileStore struct {
	pool   *pgxpool.Pool
	rdb    *redis.Client
	logger *logrus.Logger
}

func NewProfileStore(pool *pgxpool.Pool, rdb *redis.Client, logger *logrus.Logger) *ProfileStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProfileStore{pool: pool, rdb: rdb, logger: logger}
}

func changeChannel(path string) string {
	return "profile:" + path
}

func (s *ProfileStore) Doc(path string) repo.DocumentRef {
	return &profileDoc{store: s, path: path}
}

type profileDoc struct {
	store *ProfileStore
	path  string
}

func (d *profileDoc) Path() string { return d.path }

func (d *profileDoc) uid() (string, error) {
	coll, uid, ok := strings.Cut(d.path, "/")
	if !ok || coll != entity.ProfileCollection || uid == "" || strings.Contains(uid, "/") {
		return "", fmt.Errorf("%w: %q", ErrBadPath, d.path)
	}
	return uid, nil
}

func (d *profileDoc) Set(ctx context.Context, p entity.UserProfile, opts repo.SetOptions) error {
	uid, err := d.uid()
	if err != nil {
		return err
	}
	if p.UID == "" {
		p.UID = uid
	}
	// A plain set replaces the whole row, including created_at.
	query := `
		INSERT INTO profiles (uid, email, email_verified, display_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uid) DO UPDATE
		SET email = EXCLUDED.email,
		    email_verified = EXCLUDED.email_verified,
		    display_name = EXCLUDED.display_name,
		    updated_at = now()`
	if !opts.Merge {
		query += `,
		    created_at = now()`
	}
	if _, err := d.store.pool.Exec(ctx, query, uid, p.Email, p.EmailVerified, p.DisplayName); err != nil {
		return err
	}
	if d.store.rdb != nil {
		if err := d.store.rdb.Publish(ctx, changeChannel(d.path), "set").Err(); err != nil {
			d.store.logger.WithError(err).WithField("path", d.path).Warn("profile change publish failed")
		}
	}
	return nil
}

func (d *profileDoc) read(ctx context.Context, uid string) (repo.Snapshot, error) {
	var p entity.UserProfile
	err := d.store.pool.QueryRow(ctx, `
		SELECT uid, email, email_verified, display_name
		FROM profiles
		WHERE uid = $1
	`, uid).Scan(&p.UID, &p.Email, &p.EmailVerified, &p.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.Snapshot{}, nil
	}
	if err != nil {
		return repo.Snapshot{}, err
	}
	return repo.Snapshot{Exists: true, Profile: p}, nil
}

// ValueChanges subscribes before the first read so no write between the two is missed.
func (d *profileDoc) ValueChanges(ctx context.Context) <-chan repo.Snapshot {
	out := make(chan repo.Snapshot)
	go func() {
		defer close(out)
		log := d.store.logger.WithField("path", d.path)

		uid, err := d.uid()
		if err != nil {
			log.WithError(err).Error("profile read failed")
			return
		}

		var notify <-chan *redis.Message
		if d.store.rdb != nil {
			sub := d.store.rdb.Subscribe(ctx, changeChannel(d.path))
			defer func() { _ = sub.Close() }()
			if _, err := sub.Receive(ctx); err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Error("profile subscribe failed")
				}
				return
			}
			notify = sub.Channel()
		}

		for {
			snap, err := d.read(ctx, uid)
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Error("profile read failed")
				}
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			select {
			case _, ok := <-notify:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
