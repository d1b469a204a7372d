package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homegrid-data/internal/authz"
)

func setupSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionStore(NewRedisKV(client), 10*time.Minute), mr
}

func TestSessionStore_CreateAndLookup(t *testing.T) {
	s, _ := setupSessionStore(t)
	ctx := context.Background()

	token, err := s.Create(ctx, authz.Session{Email: "alice@x.com", IssuedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sess, err := s.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", sess.Email)
}

func TestSessionStore_UnknownToken(t *testing.T) {
	s, _ := setupSessionStore(t)

	_, err := s.Lookup(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSessionStore_Expiry(t *testing.T) {
	s, mr := setupSessionStore(t)
	ctx := context.Background()

	token, err := s.Create(ctx, authz.Session{Email: "alice@x.com"})
	require.NoError(t, err)

	mr.FastForward(11 * time.Minute)

	_, err = s.Lookup(ctx, token)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSessionStore_Revoke(t *testing.T) {
	s, _ := setupSessionStore(t)
	ctx := context.Background()

	token, err := s.Create(ctx, authz.Session{Email: "alice@x.com"})
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, token))

	_, err = s.Lookup(ctx, token)
	assert.ErrorIs(t, err, ErrMiss)
}
