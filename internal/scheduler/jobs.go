package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// FuncJob adapts a plain function into a Job.
type FuncJob struct {
	JobName string
	Spec    string
	Fn      func(ctx context.Context) error
}

func (j FuncJob) Name() string { return j.JobName }
func (j FuncJob) Schedule() string { return j.Spec }
func (j FuncJob) Run(ctx context.Context) error { return j.Fn(ctx) }

// ViewSyncer flushes buffered view counters.
type ViewSyncer interface {
	SyncViews(ctx context.Context) (int, error)
}

func ViewSyncJob(spec string, views ViewSyncer, log *zap.Logger) Job {
	return FuncJob{
		JobName: "view_sync",
		Spec:    spec,
		Fn: func(ctx context.Context) error {
			n, err := views.SyncViews(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				log.Debug("views synced", zap.Int("posts", n))
			}
			return nil
		},
	}
}

// HealthProbe pings the database and records the result.
type HealthProbe interface {
	Check(ctx context.Context) error
}

func HealthCheckJob(spec string, probe HealthProbe) Job {
	return FuncJob{
		JobName: "store_health",
		Spec:    spec,
		Fn:      probe.Check,
	}
}

// Reindexer rebuilds the search index from the database.
type Reindexer interface {
	Reindex(ctx context.Context) (int, error)
}

func ReindexJob(spec string, r Reindexer, log *zap.Logger) Job {
	return FuncJob{
		JobName: "search_reindex",
		Spec:    spec,
		Fn: func(ctx context.Context) error {
			n, err := r.Reindex(ctx)
			if err != nil {
				return err
			}
			log.Info("search index rebuilt", zap.Int("documents", n))
			return nil
		},
	}
}

// LimiterCleanupJob drops idle per-client limiters.
func LimiterCleanupJob(spec string, cleanup func()) Job {
	return FuncJob{
		JobName: "limiter_cleanup",
		Spec:    spec,
		Fn: func(context.Context) error {
			cleanup()
			return nil
		},
	}
}
