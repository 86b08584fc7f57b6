package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of background work run on a cron schedule.
type Job interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on their schedules. A job never overlaps
// with itself.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
	log     *zap.Logger
}

func New(timeout time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		jobs:    make([]Job, 0),
		timeout: timeout,
		log:     log,
	}
}

// Register schedules job. Jobs with an empty schedule are on-demand only.
func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		s.log.Info("job registered on demand", zap.String("job", job.Name()))
		return nil
	}

	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		if err := s.run(context.Background(), job); err != nil {
			s.log.Warn("job failed", zap.String("job", job.Name()), zap.Error(err))
		}
	}))
	if _, err := s.cron.AddJob(schedule, wrapped); err != nil {
		return err
	}

	s.log.Info("job scheduled", zap.String("job", job.Name()), zap.String("schedule", schedule))
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return job.Run(ctx)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// RunByName executes a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) (bool, error) {
	for _, job := range s.jobs {
		if job.Name() == name {
			return true, s.run(ctx, job)
		}
	}
	return false, nil
}

func (s *Scheduler) Registered() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
