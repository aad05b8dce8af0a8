package container

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-facade/config"
	"github.com/oksasatya/go-auth-facade/internal/infrastructure/memory"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	SetConfig(c)
	SetLogger(logger)
	t.Cleanup(func() {
		SetConfig(nil)
		SetLogger(nil)
		SetFirebase(nil)
		SetFirestore(nil)
		SetRabbitPub(nil)
	})
}

func TestNewProfileStore(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		withConfig(t, &config.Config{ProfileBackend: config.BackendMemory})
		store, err := NewProfileStore()
		require.NoError(t, err)
		assert.IsType(t, &memory.ProfileStore{}, store)
	})

	t.Run("firestore backend without a client", func(t *testing.T) {
		withConfig(t, &config.Config{ProfileBackend: config.BackendFirestore})
		require.Nil(t, GetFirestore())
		_, err := NewProfileStore()
		assert.ErrorIs(t, err, errNotInitialized)
	})

	t.Run("unknown backend", func(t *testing.T) {
		withConfig(t, &config.Config{ProfileBackend: "mongo"})
		_, err := NewProfileStore()
		assert.EqualError(t, err, `unknown PROFILE_BACKEND "mongo"`)
	})
}

func TestNewIdentityProvider_NeedsInit(t *testing.T) {
	SetConfig(nil)
	_, err := NewIdentityProvider(context.Background())
	assert.ErrorIs(t, err, errNotInitialized)

	withConfig(t, &config.Config{IdentityBackend: config.BackendFirebase})
	require.Nil(t, GetFirebase())
	_, err = NewIdentityProvider(context.Background())
	assert.ErrorIs(t, err, errNotInitialized)

	withConfig(t, &config.Config{IdentityBackend: config.BackendLocal})
	_, err = NewLinkService()
	assert.ErrorIs(t, err, errNotInitialized)
}
