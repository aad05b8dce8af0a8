package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
)

func recvSnap(t *testing.T, ch <-chan repo.Snapshot) repo.Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "feed closed")
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return repo.Snapshot{}
	}
}

func TestProfileStore_MergeKeepsUnspecifiedFields(t *testing.T) {
	s := NewProfileStore()
	ctx := context.Background()
	s.Put("users/u1", map[string]any{"uid": "u1", "photoURL": "http://img"}, false)

	err := s.Doc("users/u1").Set(ctx, entity.UserProfile{UID: "u1", Email: entity.StringPtr("u@x.com")}, repo.SetOptions{Merge: true})
	require.NoError(t, err)

	fields := s.Fields("users/u1")
	assert.Equal(t, "http://img", fields["photoURL"])
	assert.Equal(t, "u1", fields["uid"])

	err = s.Doc("users/u1").Set(ctx, entity.UserProfile{UID: "u1"}, repo.SetOptions{})
	require.NoError(t, err)
	assert.NotContains(t, s.Fields("users/u1"), "photoURL")
}

func TestProfileStore_ValueChanges(t *testing.T) {
	s := NewProfileStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := s.Doc("users/u1").ValueChanges(ctx)
	assert.False(t, recvSnap(t, feed).Exists)

	require.NoError(t, s.Doc("users/u1").Set(ctx, entity.UserProfile{
		UID:         "u1",
		DisplayName: entity.StringPtr("Ann"),
	}, repo.SetOptions{Merge: true}))

	snap := recvSnap(t, feed)
	assert.True(t, snap.Exists)
	assert.Equal(t, "Ann", entity.Deref(snap.Profile.DisplayName))

	cancel()
	for range feed {
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.watchers)
}
