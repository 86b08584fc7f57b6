package database

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/pkg/metrics"
	"go.uber.org/zap"
)

// Pinger is satisfied by the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health tracks whether the database answered its last ping. While it is
// down, requests are refused instead of waiting on a dead pool; the pool
// redials on the next successful ping.
type Health struct {
	pinger  Pinger
	timeout time.Duration
	log     *zap.Logger
	healthy atomic.Bool
}

func NewHealth(p Pinger, timeout time.Duration, log *zap.Logger) *Health {
	h := &Health{pinger: p, timeout: timeout, log: log}
	h.healthy.Store(true)
	metrics.StoreHealthy.Set(1)
	return h
}

func (h *Health) Healthy() bool { return h.healthy.Load() }

// Check pings once and records the result.
func (h *Health) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.pinger.Ping(ctx)
	metrics.ObserveDBPing(time.Since(start))

	was := h.healthy.Swap(err == nil)
	switch {
	case err != nil && was:
		h.log.Error("database unreachable, failing requests fast", zap.Error(err))
		metrics.StoreHealthy.Set(0)
	case err == nil && !was:
		h.log.Info("database connection restored")
		metrics.StoreHealthy.Set(1)
	}
	return err
}

// MarkDown records a connection lost mid-request, so the next requests fail
// fast until a ping succeeds.
func (h *Health) MarkDown(err error) {
	if h.healthy.Swap(false) {
		h.log.Warn("database marked unhealthy", zap.Error(err))
		metrics.StoreHealthy.Set(0)
	}
}
