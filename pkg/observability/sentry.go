package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// SentryAlerter reports reconciliation failures with their context as tags.
type SentryAlerter struct{}

func (SentryAlerter) Alert(_ context.Context, err error, fields map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		for k, v := range fields {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
