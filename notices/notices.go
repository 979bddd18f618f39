// Package notices holds the short-lived messages shown to a user after an
// action: "issue reported", "please verify your email" and the like.
package notices

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

// TTL is how long a notice stays visible before it is dropped unread.
const TTL = 5 * time.Second

type Notice struct {
	Kind    Kind      `json:"type"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Queue keeps pending notices per recipient key (a uid, or a client id for
// signed-out visitors).
type Queue interface {
	Push(ctx context.Context, key string, n Notice) error
	Drain(ctx context.Context, key string) ([]Notice, error)
}

const keyPrefix = "notices:"

type RedisQueue struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, ttl: TTL}
}

// Push appends n and restarts the list's expiry.
func (q *RedisQueue) Push(ctx context.Context, key string, n Notice) error {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, keyPrefix+key, b)
	pipe.Expire(ctx, keyPrefix+key, q.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) Drain(ctx context.Context, key string) ([]Notice, error) {
	pipe := q.client.TxPipeline()
	lr := pipe.LRange(ctx, keyPrefix+key, 0, -1)
	pipe.Del(ctx, keyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	raw := lr.Val()
	out := make([]Notice, 0, len(raw))
	for _, r := range raw {
		var n Notice
		if err := json.Unmarshal([]byte(r), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

type MemoryQueue struct {
	mu      sync.Mutex
	pending map[string][]Notice
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{pending: make(map[string][]Notice), ttl: TTL, now: time.Now}
}

func (q *MemoryQueue) Push(ctx context.Context, key string, n Notice) error {
	if n.At.IsZero() {
		n.At = q.now().UTC()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[key] = append(q.pending[key], n)
	return nil
}

// Drain drops notices older than the TTL.
func (q *MemoryQueue) Drain(ctx context.Context, key string) ([]Notice, error) {
	q.mu.Lock()
	list := q.pending[key]
	delete(q.pending, key)
	q.mu.Unlock()

	cutoff := q.now().Add(-q.ttl)
	out := make([]Notice, 0, len(list))
	for _, n := range list {
		if n.At.After(cutoff) {
			out = append(out, n)
		}
	}
	return out, nil
}
