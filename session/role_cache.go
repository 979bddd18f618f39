package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"gramaalert-be/models"

	"github.com/redis/go-redis/v9"
)

const roleKeyPrefix = "session:role:"

// RedisRoleCache stores resolved roles with a TTL so role edits made
// directly in the database are eventually picked up.
type RedisRoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRoleCache(client *redis.Client, ttl time.Duration) *RedisRoleCache {
	return &RedisRoleCache{client: client, ttl: ttl}
}

func (c *RedisRoleCache) Get(ctx context.Context, uid string) (models.Role, bool, error) {
	v, err := c.client.Get(ctx, roleKeyPrefix+uid).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return models.Role(v), true, nil
}

func (c *RedisRoleCache) Set(ctx context.Context, uid string, role models.Role) error {
	return c.client.Set(ctx, roleKeyPrefix+uid, string(role), c.ttl).Err()
}

func (c *RedisRoleCache) Delete(ctx context.Context, uid string) error {
	return c.client.Del(ctx, roleKeyPrefix+uid).Err()
}

type MemoryRoleCache struct {
	mu    sync.RWMutex
	roles map[string]models.Role
}

func NewMemoryRoleCache() *MemoryRoleCache {
	return &MemoryRoleCache{roles: make(map[string]models.Role)}
}

func (c *MemoryRoleCache) Get(ctx context.Context, uid string) (models.Role, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.roles[uid]
	return r, ok, nil
}

func (c *MemoryRoleCache) Set(ctx context.Context, uid string, role models.Role) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[uid] = role
	return nil
}

func (c *MemoryRoleCache) Delete(ctx context.Context, uid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roles, uid)
	return nil
}
