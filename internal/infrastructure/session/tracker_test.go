package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client, mr
}

func recvIdentity(t *testing.T, ch <-chan *entity.Identity) *entity.Identity {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for auth state")
		return nil
	}
}

func TestTracker_SubscribeEmitsCurrentFirst(t *testing.T) {
	tr := NewTracker(nil, "k", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := tr.Subscribe(ctx)
	assert.Nil(t, recvIdentity(t, states))

	tr.Set(ctx, Session{Identity: entity.Identity{UID: "u1"}, IDToken: "tok"})
	id := recvIdentity(t, states)
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.UID)

	late := tr.Subscribe(ctx)
	assert.Equal(t, "u1", recvIdentity(t, late).UID)

	tr.Clear(ctx)
	assert.Nil(t, recvIdentity(t, states))
	assert.Nil(t, recvIdentity(t, late))
	assert.Nil(t, tr.Current())
}

func TestTracker_SlowSubscriberSeesLatest(t *testing.T) {
	tr := NewTracker(nil, "k", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := tr.Subscribe(ctx)
	assert.Nil(t, recvIdentity(t, states))

	tr.Set(ctx, Session{Identity: entity.Identity{UID: "a"}})
	tr.Set(ctx, Session{Identity: entity.Identity{UID: "b"}})
	tr.Set(ctx, Session{Identity: entity.Identity{UID: "c"}})

	var last *entity.Identity
	deadline := time.After(time.Second)
	for last == nil || last.UID != "c" {
		select {
		case last = <-states:
		case <-deadline:
			t.Fatal("latest state never delivered")
		}
	}
}

func TestTracker_SubscriptionEndsWithContext(t *testing.T) {
	tr := NewTracker(nil, "k", nil)
	ctx, cancel := context.WithCancel(context.Background())
	states := tr.Subscribe(ctx)
	<-states
	cancel()

	for range states {
	}
	assert.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.subs) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestTracker_PersistsThroughRedis(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	ctx := context.Background()
	store := NewRedisStore(rdb, time.Hour)
	key := Key("laptop")

	tr := NewTracker(store, key, nil)
	tr.Set(ctx, Session{
		Identity: entity.Identity{
			UID:           "u1",
			Email:         entity.StringPtr("u@x.com"),
			EmailVerified: true,
		},
		IDToken:      "id-tok",
		RefreshToken: "refresh-tok",
	})
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	restored := NewTracker(store, key, nil)
	require.NoError(t, restored.Restore(ctx))
	cur := restored.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "u1", cur.Identity.UID)
	assert.Equal(t, "u@x.com", entity.Deref(cur.Identity.Email))
	assert.True(t, cur.Identity.EmailVerified)
	assert.Nil(t, cur.Identity.DisplayName)
	assert.Equal(t, "id-tok", cur.IDToken)
	assert.Equal(t, "refresh-tok", cur.RefreshToken)

	restored.Clear(ctx)
	assert.False(t, mr.Exists(key))
}

func TestRedisStore_LoadMissing(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	store := NewRedisStore(rdb, 0)

	s, err := store.Load(context.Background(), Key("none"))
	require.NoError(t, err)
	assert.Nil(t, s)

	mr.HSet(Key("broken"), "email", "x@y.z")
	_, err = store.Load(context.Background(), Key("broken"))
	assert.ErrorIs(t, err, errCorruptSession)
}

// slowStore widens the gap between persisting and committing a session.
type slowStore struct {
	mu    sync.Mutex
	saved map[string]Session
}

func (s *slowStore) Load(_ context.Context, key string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.saved[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *slowStore) Save(_ context.Context, key string, v Session) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[key] = v
	return nil
}

func (s *slowStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, key)
	return nil
}

func TestTracker_ConcurrentSetAndClearAgreeWithStore(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		store := &slowStore{saved: map[string]Session{}}
		tr := NewTracker(store, "k", nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Set(ctx, Session{Identity: entity.Identity{UID: "u1"}})
		}()
		go func() {
			defer wg.Done()
			tr.Clear(ctx)
		}()
		wg.Wait()

		persisted, err := store.Load(ctx, "k")
		require.NoError(t, err)
		cur := tr.Current()
		if cur == nil {
			assert.Nil(t, persisted, "iteration %d: store signed in, tracker signed out", i)
		} else {
			require.NotNil(t, persisted, "iteration %d: tracker signed in, store signed out", i)
			assert.Equal(t, cur.Identity.UID, persisted.Identity.UID)
		}
	}
}
