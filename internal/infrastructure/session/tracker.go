package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
)

// Session is the signed-in state kept by an identity provider adapter.
type Session struct {
	Identity     entity.Identity
	IDToken      string
	RefreshToken string
}

// Tracker holds the current session, persists it and fans auth-state changes
// out to subscribers. Subscribers always see the latest state; intermediate
// states may be skipped for a slow reader.
type Tracker struct {
	store  Store
	key    string
	logger *logrus.Logger

	// writeMu orders store writes with the in-memory commit, so the store
	// always holds the session last made current.
	writeMu sync.Mutex

	mu      sync.Mutex
	current *Session
	subs    map[int]chan *entity.Identity
	nextID  int
}

// NewTracker returns a tracker persisting under key. store may be nil.
func NewTracker(store Store, key string, logger *logrus.Logger) *Tracker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Tracker{store: store, key: key, logger: logger, subs: map[int]chan *entity.Identity{}}
}

// Restore loads a persisted session, if any, and makes it current.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	s, err := t.store.Load(ctx, t.key)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.current = s
	t.broadcastLocked()
	t.mu.Unlock()
	return nil
}

// Current returns a copy of the active session or nil.
func (t *Tracker) Current() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	s := *t.current
	return &s
}

// Set makes s the active session.
func (t *Tracker) Set(ctx context.Context, s Session) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.store != nil {
		if err := t.store.Save(ctx, t.key, s); err != nil {
			t.logger.WithError(err).WithField("key", t.key).Warn("session persist failed")
		}
	}
	t.mu.Lock()
	t.current = &s
	t.broadcastLocked()
	t.mu.Unlock()
}

// Clear signs the session out.
func (t *Tracker) Clear(ctx context.Context) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.store != nil {
		if err := t.store.Delete(ctx, t.key); err != nil {
			t.logger.WithError(err).WithField("key", t.key).Warn("session delete failed")
		}
	}
	t.mu.Lock()
	t.current = nil
	t.broadcastLocked()
	t.mu.Unlock()
}

// Subscribe emits the current identity immediately, then every change, until
// ctx is done.
func (t *Tracker) Subscribe(ctx context.Context) <-chan *entity.Identity {
	in := make(chan *entity.Identity, 1)
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = in
	in <- t.identityLocked()
	t.mu.Unlock()

	out := make(chan *entity.Identity)
	go func() {
		defer close(out)
		defer func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-in:
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (t *Tracker) identityLocked() *entity.Identity {
	if t.current == nil {
		return nil
	}
	id := t.current.Identity
	return &id
}

func (t *Tracker) broadcastLocked() {
	v := t.identityLocked()
	for _, ch := range t.subs {
		// drop a value the subscriber has not picked up yet
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
