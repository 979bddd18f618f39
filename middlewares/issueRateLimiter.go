package middlewares

import (
	"net/http"
	"sync"
	"time"

	"gramaalert-be/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const limitWindow = 24 * time.Hour

// IssueRateLimiter caps issue submissions per user per day. With Redis the
// count is shared across instances; without it each process keeps a token
// bucket per user.
type IssueRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	log    *zap.Logger

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewIssueRateLimiter(client *redis.Client, prefix string, limit int, log *zap.Logger) *IssueRateLimiter {
	return &IssueRateLimiter{
		client:  client,
		prefix:  prefix,
		limit:   limit,
		log:     log,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *IssueRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := sessionUID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login to report an issue"})
			c.Abort()
			return
		}
		if l.limit <= 0 {
			c.Next()
			return
		}

		if l.client == nil {
			l.local(c, userID)
			return
		}
		l.shared(c, userID)
	}
}

func (l *IssueRateLimiter) shared(c *gin.Context, userID string) {
	ctx := c.Request.Context()
	userKey := l.prefix + ":" + userID

	count, err := l.client.Incr(ctx, userKey).Result()
	if err != nil {
		l.log.Error("redis error incrementing count", zap.String("key", userKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error incrementing count"})
		c.Abort()
		return
	}

	// Set TTL only for the first increment
	if count == 1 {
		if err := l.client.Expire(ctx, userKey, limitWindow).Err(); err != nil {
			l.log.Error("redis error setting TTL", zap.String("key", userKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error setting TTL"})
			c.Abort()
			return
		}
	}

	if count > int64(l.limit) {
		retryAfter, _ := l.client.TTL(ctx, userKey).Result()
		metrics.RateLimitRejected.WithLabelValues("redis").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": retryAfter.Seconds(),
		})
		c.Abort()
		return
	}
	c.Next()
}

func (l *IssueRateLimiter) local(c *gin.Context, userID string) {
	l.mu.Lock()
	b, ok := l.buckets[userID]
	if !ok {
		b = rate.NewLimiter(rate.Every(limitWindow/time.Duration(l.limit)), l.limit)
		l.buckets[userID] = b
	}
	l.mu.Unlock()

	r := b.Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		metrics.RateLimitRejected.WithLabelValues("memory").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": delay.Seconds(),
		})
		c.Abort()
		return
	}
	c.Next()
}
