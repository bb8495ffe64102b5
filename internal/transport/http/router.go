package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/org-wallet/internal/config"
	"github.com/richardliu001/org-wallet/internal/service"
	"go.uber.org/zap"
)

// NewRouter wires middleware and routes. rdb may be nil, which disables
// idempotent replay.
func NewRouter(svc *service.WalletService, cfg *config.Config, rdb *redis.Client, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.Use(AuthMiddleware(cfg.Auth))
	v1.Use(IdempotencyMiddleware(rdb, cfg.Idempotency.TTL, log))
	RegisterHandlers(v1, svc, log)
	return r
}
