package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-intake-api/pkg/config"
	appErrors "github.com/noah-isme/enrollment-intake-api/pkg/errors"
)

// RateLimitResult describes the outcome of one bucket check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int
	ResetAt    time.Time
}

// BucketStore counts requests per key within a fixed window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error)
}

// RedisBucketStore keeps counters in Redis so limits hold across instances.
type RedisBucketStore struct {
	client *redis.Client
}

// NewRedisBucketStore constructs a Redis-backed bucket store.
func NewRedisBucketStore(client *redis.Client) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

// Allow increments the counter for key and compares it against the limit.
// The first hit in a window sets the key's expiry.
func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return nil, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}

	result := &RateLimitResult{
		Limit:   limit,
		ResetAt: time.Now().Add(ttl),
	}
	if int(count) > limit {
		result.RetryAfter = int(ttl.Seconds()) + 1
		return result, nil
	}
	result.Allowed = true
	result.Remaining = limit - int(count)
	return result, nil
}

// MemoryBucketStore is a single-instance fallback used when Redis is
// unavailable, and by tests.
type MemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
}

type memoryBucket struct {
	count   int
	expires time.Time
}

// NewMemoryBucketStore constructs an in-memory bucket store.
func NewMemoryBucketStore() *MemoryBucketStore {
	return &MemoryBucketStore{buckets: make(map[string]*memoryBucket)}
}

// Allow implements BucketStore.
func (s *MemoryBucketStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	bucket, ok := s.buckets[key]
	if !ok || now.After(bucket.expires) {
		bucket = &memoryBucket{expires: now.Add(window)}
		s.buckets[key] = bucket
	}
	bucket.count++

	result := &RateLimitResult{
		Limit:   limit,
		ResetAt: bucket.expires,
	}
	if bucket.count > limit {
		result.RetryAfter = int(time.Until(bucket.expires).Seconds()) + 1
		return result, nil
	}
	result.Allowed = true
	result.Remaining = limit - bucket.count
	return result, nil
}

// RateLimiter enforces per-IP request caps ahead of the intake pipeline.
type RateLimiter struct {
	store   BucketStore
	cfg     config.RateLimitConfig
	logger  *zap.Logger
	enabled bool
}

// NewRateLimiter constructs the limiter. A nil store disables limiting.
func NewRateLimiter(store BucketStore, cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		enabled: cfg.Enabled && store != nil,
	}
}

// General caps overall API traffic per client IP.
func (l *RateLimiter) General() gin.HandlerFunc {
	return l.limit("general", l.cfg.GeneralLimit, l.cfg.GeneralWindow)
}

// Submission applies the stricter cap on the form submission endpoints.
func (l *RateLimiter) Submission() gin.HandlerFunc {
	return l.limit("submission", l.cfg.SubmissionLimit, l.cfg.SubmissionWindow)
}

// limit checks the bucket for the client IP and rejects with 429 once the
// window is exhausted. Store errors fail open: losing rate limiting is
// preferable to rejecting legitimate submissions.
func (l *RateLimiter) limit(scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.enabled || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", scope, c.ClientIP())
		result, err := l.store.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			l.logger.Error("rate limit check failed", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(result.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":       appErrors.ErrRateLimit.Code,
				"message":    appErrors.ErrRateLimit.Message,
				"retryAfter": result.RetryAfter,
			})
			return
		}

		c.Next()
	}
}
