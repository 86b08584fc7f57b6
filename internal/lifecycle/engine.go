// Package lifecycle owns every state transition of tuition posts,
// applications and payments. Handlers never change status columns
// directly; they call the Engine.
package lifecycle

import (
	"context"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"go.uber.org/zap"
)

// Alerter reports failures that need a human to reconcile.
type Alerter interface {
	Alert(ctx context.Context, err error, fields map[string]string)
}

// Notifier delivers in-app notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n entity.Notification)
}

type nopAlerter struct{}

func (nopAlerter) Alert(context.Context, error, map[string]string) {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, entity.Notification) {}

type Engine struct {
	store    store.Store
	log      *zap.Logger
	alerter  Alerter
	notifier Notifier
	now      func() time.Time
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(st store.Store, log *zap.Logger, alerter Alerter, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if alerter == nil {
		alerter = nopAlerter{}
	}
	e := &Engine{
		store:    st,
		log:      log,
		alerter:  alerter,
		notifier: nopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) notify(ctx context.Context, n entity.Notification) {
	e.notifier.Notify(context.WithoutCancel(ctx), n)
}
