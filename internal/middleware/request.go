package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/metrics"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/ratelimiter"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Timeout bounds every downstream call of the request.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// HealthChecker reports whether the database answered its last ping.
type HealthChecker interface {
	Healthy() bool
	MarkDown(err error)
}

// StoreGate fails fast with 503 while the database is unreachable. A request
// that lost its connection marks the database down until the next good ping.
func StoreGate(h HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.Healthy() {
			response.ResponseError(c, apperror.Unavailable(nil))
			return
		}
		c.Next()

		for _, e := range c.Errors {
			if errors.Is(e.Err, apperror.ErrServiceUnavailable) && apperror.IsConnectionLost(e.Err) {
				h.MarkDown(e.Err)
				return
			}
		}
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter throttles requests per client IP.
type ClientLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ClientLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (l *ClientLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup forgets clients idle for longer than the idle window.
func (l *ClientLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if time.Since(v.lastSeen) > l.idle {
			delete(l.visitors, key)
		}
	}
}

func (l *ClientLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := l.get(c.ClientIP())
		if !limiter.Allow() {
			retry := time.Duration(float64(time.Second) / float64(l.rate)).Truncate(time.Second) + time.Second
			response.ResponseError(c, &ratelimiter.RateLimitError{
				RetryAfter: retry,
				Message:    "too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if p, ok := authctx.GetPrincipal(c); ok {
			fields = append(fields, zap.String("account_id", p.AccountID.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// Instrument records request counts and latencies by route template.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
