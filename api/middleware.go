package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an address may stay silent before its bucket
// is dropped.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters hands out one token bucket per client address. Buckets idle
// for longer than idleTTL are swept on the next lookup after idleTTL.
type ipLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	every     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiters(perMinute, burst int) *ipLimiters {
	every := rate.Inf
	idleTTL := limiterIdleTTL
	if perMinute > 0 {
		interval := time.Minute / time.Duration(perMinute)
		every = rate.Every(interval)
		// A dropped bucket must already have refilled, or eviction would
		// hand out extra tokens.
		if refill := interval * time.Duration(burst); refill > idleTTL {
			idleTTL = refill
		}
	}
	return &ipLimiters{
		limiters:  make(map[string]*clientLimiter),
		every:     every,
		burst:     burst,
		idleTTL:   idleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		for addr, c := range l.limiters {
			if now.Sub(c.lastSeen) >= l.idleTTL {
				delete(l.limiters, addr)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.limiters[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.every, l.burst)}
		l.limiters[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func RateLimit(perMinute, burst int, logger *zap.Logger) gin.HandlerFunc {
	limiters := newIPLimiters(perMinute, burst)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiters.get(ip).Allow() {
			logger.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
			logger.Error("request failed", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic while serving request",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	})
}
