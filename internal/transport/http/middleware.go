package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader      = "X-Request-ID"
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	inProgressMarker     = "__in_progress__"
)

// RequestIDMiddleware propagates or assigns a request id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// LoggingMiddleware prints request/response metrics.
func LoggingMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"requestID", c.GetString("request_id"),
			"userID", currentUser(c),
		)
	}
}

// RateLimitMiddleware simple token bucket per IP.
func RateLimitMiddleware(rps, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*rate.Limiter)
	newLimiter := func() *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), burst) }
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		lim, ok := buckets[ip]
		if !ok {
			lim = newLimiter()
			buckets[ip] = lim
		}
		mu.Unlock()
		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        string `json:"body"`
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key. Keys are scoped to the caller and route. Requests without
// the header pass through. Server errors are not stored so the client can retry.
// A nil client disables the middleware.
func IdempotencyMiddleware(cache *redis.Client, ttl time.Duration, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyKeyHeader)
		if cache == nil || key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		cacheKey := fmt.Sprintf("%s%d:%s:%s:%s", idempotencyPrefix, currentUser(c), c.Request.Method, c.Request.URL.Path, key)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil && cached == inProgressMarker:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate request currently processing"})
			return
		case err == nil:
			var stored storedResponse
			if err := json.Unmarshal([]byte(cached), &stored); err != nil {
				log.Warnw("decode stored idempotent response", "key", key, "err", err)
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate request"})
				return
			}
			c.Header("Idempotent-Replayed", "true")
			c.Data(stored.Status, stored.ContentType, []byte(stored.Body))
			c.Abort()
			return
		case err != redis.Nil:
			log.Errorw("idempotency lookup failed", "key", key, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "idempotency store failure"})
			return
		}

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			log.Errorw("idempotency reservation failed", "key", key, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "idempotency reservation failure"})
			return
		}
		if !reserved {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate request currently processing"})
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		// the request context may already be done; persist on a fresh one
		persistCtx, persistCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer persistCancel()

		status := cw.Status()
		if status >= http.StatusInternalServerError {
			cache.Del(persistCtx, cacheKey)
			return
		}
		payload, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: cw.Header().Get("Content-Type"),
			Body:        cw.buf.String(),
		})
		if err != nil {
			log.Errorw("encode idempotent response", "key", key, "err", err)
			cache.Del(persistCtx, cacheKey)
			return
		}
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			log.Errorw("persist idempotent response", "key", key, "err", err)
			cache.Del(persistCtx, cacheKey)
		}
	}
}
