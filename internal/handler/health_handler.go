package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type storageChecker interface {
	CheckStorage(ctx context.Context) error
}

// HealthHandler reports process liveness and dependency connectivity.
type HealthHandler struct {
	storage storageChecker
	redis   *redis.Client
}

// NewHealthHandler constructs HealthHandler. The Redis client may be nil
// when the process runs without Redis.
func NewHealthHandler(storage storageChecker, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{storage: storage, redis: redisClient}
}

// Health reports storage and Redis connectivity. Storage is required for
// readiness; Redis only degrades rate limiting and is reported but never
// fails the probe.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	storage := "up"
	if err := h.storage.CheckStorage(ctx); err != nil {
		storage = "down"
		status = http.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"storage": storage,
		"redis":   redisStatus,
	})
}
