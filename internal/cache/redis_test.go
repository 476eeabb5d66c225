package cache

import (
	"context"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	return NewRedisStore(client), m
}

func TestRedisStore_SetGetFields(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "cs-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetFields(ctx, "cs-1", map[string]string{"code": "print(1)"}))

	ok, err = s.Exists(ctx, "cs-1")
	require.NoError(t, err)
	require.True(t, ok)

	v, found, err := s.GetField(ctx, "cs-1", "code")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "print(1)", v)

	// absent field on an existing key
	_, found, err = s.GetField(ctx, "cs-1", "name")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisStore_GetFields_OrderAndAbsent(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetFields(ctx, "cs-2", map[string]string{"code": "x = 1", "uuid": "cs-2"}))

	vals, err := s.GetFields(ctx, "cs-2", []string{"uuid", "missing", "code"})
	require.NoError(t, err)
	require.Len(t, vals, 3)
	require.NotNil(t, vals[0])
	require.Equal(t, "cs-2", *vals[0])
	require.Nil(t, vals[1])
	require.NotNil(t, vals[2])
	require.Equal(t, "x = 1", *vals[2])
}

func TestRedisStore_GetFields_MissingKey(t *testing.T) {
	s, _ := newTestRedisStore(t)
	vals, err := s.GetFields(context.Background(), "no-such-key", []string{"code"})
	require.NoError(t, err)
	require.Len(t, vals, 1)
	require.Nil(t, vals[0])
}

func TestRedisStore_DeleteKey(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetFields(ctx, "cs-3", map[string]string{"code": "y"}))
	require.NoError(t, s.DeleteKey(ctx, "cs-3"))

	ok, err := s.Exists(ctx, "cs-3")
	require.NoError(t, err)
	require.False(t, ok)

	// deleting again is not an error
	require.NoError(t, s.DeleteKey(ctx, "cs-3"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	s, m := newTestRedisStore(t)
	m.Close()

	_, err := s.Exists(context.Background(), "cs-4")
	require.ErrorIs(t, err, ErrUnavailable)

	err = s.SetFields(context.Background(), "cs-4", map[string]string{"code": "z"})
	require.ErrorIs(t, err, ErrUnavailable)
}
