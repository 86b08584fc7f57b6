package middleware

import (
	"context"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type flagHealth struct{ up atomic.Bool }

func (h *flagHealth) Healthy() bool { return h.up.Load() }

func (h *flagHealth) MarkDown(error) { h.up.Store(false) }

func TestStoreGate(t *testing.T) {
	health := &flagHealth{}
	router := newRouter(StoreGate(health))

	status, body := do(t, router, "", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, apperror.CodeServiceUnavailable, body.Code)

	health.up.Store(true)
	status, _ = do(t, router, "", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestStoreGate_MarksDownOnLostConnection(t *testing.T) {
	health := &flagHealth{}
	health.up.Store(true)

	r := gin.New()
	r.Use(StoreGate(health))
	r.GET("/slow", func(c *gin.Context) {
		response.ResponseError(c, apperror.FromStore(context.DeadlineExceeded, "tuition post"))
	})
	r.GET("/gone", func(c *gin.Context) {
		response.ResponseError(c, apperror.FromStore(driver.ErrBadConn, "tuition post"))
	})
	get := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	// A query that ran out of time says nothing about the connection.
	assert.Equal(t, http.StatusServiceUnavailable, get("/slow"))
	assert.True(t, health.Healthy())

	assert.Equal(t, http.StatusServiceUnavailable, get("/gone"))
	assert.False(t, health.Healthy())

	// Later requests fail fast without reaching the handler.
	assert.Equal(t, http.StatusServiceUnavailable, get("/slow"))
}

func TestClientLimiter(t *testing.T) {
	limiter := NewClientLimiter(1, 2)
	router := newRouter(limiter.Handler())

	for i := 0; i < 2; i++ {
		status, _ := do(t, router, "", "")
		assert.Equal(t, http.StatusOK, status)
	}
	status, body := do(t, router, "", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, apperror.CodeRateLimited, body.Code)

	limiter.idle = 0
	time.Sleep(time.Millisecond)
	limiter.Cleanup()
	assert.Empty(t, limiter.visitors)
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	r := gin.New()
	r.Use(Timeout(time.Second))
	r.GET("/t", func(c *gin.Context) {
		deadline, _ = c.Request.Context().Deadline()
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}

func TestAccessLogAndInstrument(t *testing.T) {
	r := gin.New()
	r.Use(AccessLog(zap.NewNop()), Instrument())
	r.GET("/t", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
