package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("access", "refresh", time.Minute, time.Hour)

	tok, exp, err := m.GenerateAccessToken("u1", "s1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := m.ParseAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "s1", claims.SessionID)

	_, err = m.ParseRefreshToken(tok)
	assert.Error(t, err, "access token must not verify with the refresh secret")
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("access", "refresh", -time.Minute, time.Hour)
	tok, _, err := m.GenerateAccessToken("u1", "s1")
	require.NoError(t, err)

	_, err = m.ParseAccessToken(tok)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.True(t, CompareHashAndPassword(hash, "password123"))
	assert.False(t, CompareHashAndPassword(hash, "password124"))
	assert.False(t, CompareHashAndPassword("", "password123"))
}

func TestGenToken(t *testing.T) {
	a, err := GenToken(32)
	require.NoError(t, err)
	b, err := GenToken(32)
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestRedisTake(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := NewRedisClient(mr.Addr(), "", 0)
	ctx := context.Background()

	require.NoError(t, mr.Set(KeyVerifyToken("abc"), "u1"))

	val, found, err := RedisTake(ctx, rdb, KeyVerifyToken("abc"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "u1", val)
	assert.False(t, mr.Exists(KeyVerifyToken("abc")))

	_, found, err = RedisTake(ctx, rdb, KeyVerifyToken("abc"))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mr.Set(KeyUserSession("u1"), "x"))
	require.NoError(t, RedisDel(ctx, rdb, KeyUserSession("u1")))
	assert.False(t, mr.Exists(KeyUserSession("u1")))
}
