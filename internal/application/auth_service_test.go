package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
)

var errProvider = errors.New("provider unavailable")

func newTestService() (*Service, *fakeIdP, *fakeStore, *test.Hook) {
	logger, hook := test.NewNullLogger()
	idp := newFakeIdP()
	store := newFakeStore()
	return NewService(idp, store, logger), idp, store, hook
}

func TestService_Login(t *testing.T) {
	t.Run("returns identity and merge-writes the profile once", func(t *testing.T) {
		svc, idp, store, _ := newTestService()
		want := &entity.Identity{
			UID:           "u1",
			Email:         entity.StringPtr("u@x.com"),
			EmailVerified: true,
			DisplayName:   entity.StringPtr("U One"),
		}
		idp.signIn = func(email, password string) (*entity.Identity, error) {
			assert.Equal(t, "u@x.com", email)
			assert.Equal(t, "pw", password)
			return want, nil
		}

		got := svc.Login(context.Background(), "u@x.com", "pw")
		require.Equal(t, want, got)

		select {
		case call := <-store.sets:
			assert.Equal(t, "users/u1", call.path)
			assert.True(t, call.opts.Merge)
			assert.Equal(t, entity.UserProfile{
				UID:           "u1",
				Email:         entity.StringPtr("u@x.com"),
				EmailVerified: true,
				DisplayName:   entity.StringPtr("U One"),
			}, call.profile)
			assert.Equal(t, map[string]any{
				"uid":           "u1",
				"email":         call.profile.Email,
				"emailVerified": true,
				"displayName":   call.profile.DisplayName,
			}, call.profile.Fields())
		case <-time.After(time.Second):
			t.Fatal("profile write never happened")
		}

		select {
		case call := <-store.sets:
			t.Fatalf("unexpected second write: %+v", call)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("write survives the caller's cancellation", func(t *testing.T) {
		svc, idp, store, _ := newTestService()
		idp.signIn = func(string, string) (*entity.Identity, error) {
			return &entity.Identity{UID: "u2"}, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		require.NotNil(t, svc.Login(ctx, "a@b.c", "pw"))
		cancel()

		select {
		case call := <-store.sets:
			assert.Equal(t, "users/u2", call.path)
		case <-time.After(time.Second):
			t.Fatal("profile write never happened")
		}
	})

	t.Run("provider failure returns nil and writes nothing", func(t *testing.T) {
		svc, idp, store, hook := newTestService()
		idp.signIn = func(string, string) (*entity.Identity, error) { return nil, errProvider }

		assert.Nil(t, svc.Login(context.Background(), "u@x.com", "bad"))
		assert.Equal(t, 0, store.docCount())
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
		assert.Equal(t, errProvider, hook.LastEntry().Data[logrus.ErrorKey])
	})
}

func TestService_Signup(t *testing.T) {
	t.Run("creates the account and sends verification", func(t *testing.T) {
		svc, idp, _, _ := newTestService()
		id := &entity.Identity{UID: "n1", Email: entity.StringPtr("n@x.com")}
		user := &fakeUser{id: id}
		idp.create = func(string, string) (*entity.Identity, error) {
			idp.current = user
			return id, nil
		}

		assert.Equal(t, id, svc.Signup(context.Background(), "n@x.com", "secret123"))
		assert.Equal(t, 1, user.sends())
	})

	t.Run("creation failure returns nil without sending", func(t *testing.T) {
		svc, idp, _, _ := newTestService()
		idp.create = func(string, string) (*entity.Identity, error) { return nil, errProvider }

		assert.Nil(t, svc.Signup(context.Background(), "n@x.com", "secret123"))
		assert.Equal(t, 0, idp.currentReqs)
	})

	t.Run("verification failure returns nil", func(t *testing.T) {
		svc, idp, _, _ := newTestService()
		id := &entity.Identity{UID: "n1"}
		idp.create = func(string, string) (*entity.Identity, error) {
			idp.current = &fakeUser{id: id, sendErr: errProvider}
			return id, nil
		}

		assert.Nil(t, svc.Signup(context.Background(), "n@x.com", "secret123"))
	})
}

func TestService_LoginWithPopup(t *testing.T) {
	svc, idp, store, _ := newTestService()
	id := &entity.Identity{UID: "g1"}
	idp.popup = func() (*entity.Identity, error) { return id, nil }

	assert.Equal(t, id, svc.LoginWithPopup(context.Background()))
	assert.Equal(t, []entity.OAuthProvider{entity.ProviderGoogle}, idp.popupCalls)
	assert.Equal(t, 0, store.docCount())

	idp.popup = func() (*entity.Identity, error) { return nil, errors.New("popup closed by user") }
	assert.Nil(t, svc.LoginWithPopup(context.Background()))
}

func TestService_SwallowsFailures(t *testing.T) {
	svc, idp, _, hook := newTestService()
	idp.resetErr = errProvider
	idp.signOutErr = errProvider
	idp.currentErr = errProvider

	assert.NotPanics(t, func() {
		svc.ResetPassword(context.Background(), "u@x.com")
		svc.Logout(context.Background())
		svc.SendVerificationEmail(context.Background())
	})
	assert.Equal(t, []string{"u@x.com"}, idp.resetCalls)
	assert.Equal(t, 1, idp.signOuts)
	assert.Len(t, hook.AllEntries(), 3)

	idp.currentErr = nil
	user := &fakeUser{id: &entity.Identity{UID: "u1"}, sendErr: errProvider}
	idp.current = user
	assert.NotPanics(t, func() { svc.SendVerificationEmail(context.Background()) })
	assert.Equal(t, 1, user.sends())
}

func TestService_SendVerificationEmail_NoCurrentUser(t *testing.T) {
	svc, idp, _, hook := newTestService()

	svc.SendVerificationEmail(context.Background())
	assert.Equal(t, 1, idp.currentReqs)
	assert.Empty(t, hook.AllEntries())
}

func TestService_UpdateUserData(t *testing.T) {
	t.Run("nil identity writes nothing", func(t *testing.T) {
		svc, _, store, hook := newTestService()

		assert.Nil(t, svc.updateUserData(context.Background(), nil))
		assert.Equal(t, 0, store.docCount())
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	})

	t.Run("completion signal carries the write error", func(t *testing.T) {
		svc, _, store, _ := newTestService()
		store.setErr = errProvider

		done := svc.updateUserData(context.Background(), &entity.Identity{UID: "u9"})
		require.NotNil(t, done)
		select {
		case err := <-done:
			assert.ErrorIs(t, err, errProvider)
		case <-time.After(time.Second):
			t.Fatal("no completion signal")
		}
		_, open := <-done
		assert.False(t, open)

		call := <-store.sets
		assert.Equal(t, "users/u9", call.path)
		assert.Equal(t, repo.SetOptions{Merge: true}, call.opts)
	})
}
