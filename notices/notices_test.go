package notices

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisQueue_PushDrain(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	q := NewRedisQueue(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "u1", Notice{Kind: Success, Message: "Issue reported successfully! Confirmation email sent."}))
	require.NoError(t, q.Push(ctx, "u1", Notice{Kind: Info, Message: "second"}))
	require.NoError(t, q.Push(ctx, "u2", Notice{Kind: Error, Message: "other user"}))

	got, err := q.Drain(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, Success, got[0].Kind)
	require.Equal(t, "second", got[1].Message)

	got, err = q.Drain(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRedisQueue_Expires(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	q := NewRedisQueue(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "u1", Notice{Kind: Info, Message: "soon gone"}))
	m.FastForward(TTL + time.Second)

	got, err := q.Drain(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMemoryQueue_DropsStale(t *testing.T) {
	q := NewMemoryQueue()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "k", Notice{Kind: Info, Message: "old"}))
	now = now.Add(4 * time.Second)
	require.NoError(t, q.Push(ctx, "k", Notice{Kind: Info, Message: "fresh"}))
	now = now.Add(2 * time.Second)

	got, err := q.Drain(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "fresh", got[0].Message)
}
