// File: internal/infra/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"pos-license-platform/internal/infra/metrics"
	infraRedis "pos-license-platform/internal/infra/redis"
)

// Job is a named maintenance task with a cron cadence. The entry point owns
// the job list and hands it to the scheduler; the scheduler itself knows
// nothing about which jobs exist.
type Job struct {
	Name string
	Spec string
	// Run performs one pass and reports how many records it touched.
	Run func(ctx context.Context) (int, error)
}

// Scheduler runs the registered jobs on their cron cadence. Each run is
// guarded two ways: cron.SkipIfStillRunning prevents in-process overlap, and
// a Redis lock prevents overlap across instances.
type Scheduler struct {
	cron    *cron.Cron
	locker  infraRedis.Locker
	timeout time.Duration
	log     *zerolog.Logger
}

const lockTTL = 15 * time.Minute

func NewScheduler(locker infraRedis.Locker, logger *zerolog.Logger) *Scheduler {
	schedLog := logger.With().Str("component", "Scheduler").Logger()
	cronLog := &cronLogger{log: &schedLog}
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLog),
		cron.Recover(cronLog),
	))
	return &Scheduler{
		cron:    c,
		locker:  locker,
		timeout: 10 * time.Minute,
		log:     &schedLog,
	}
}

// Register adds a job to the cron table. Returns the spec parse error, if any.
func (s *Scheduler) Register(job Job) error {
	_, err := s.cron.AddFunc(job.Spec, func() { s.runJob(job) })
	if err != nil {
		return err
	}
	s.log.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("job registered")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts the cron table and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	lockKey := "job:" + job.Name
	token, err := s.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		if err == infraRedis.ErrLockHeld {
			metrics.IncJobRun(job.Name, "skipped")
			s.log.Debug().Str("job", job.Name).Msg("job lock held elsewhere; skipping")
			return
		}
		// Lock service unavailable. Run anyway: every job is idempotent and
		// a duplicate pass is cheaper than a missed one.
		s.log.Warn().Err(err).Str("job", job.Name).Msg("job lock unavailable; running unlocked")
	} else {
		defer func() { _ = s.locker.Unlock(context.Background(), lockKey, token) }()
	}

	started := time.Now()
	n, runErr := job.Run(ctx)
	metrics.ObserveJobDuration(job.Name, time.Since(started).Seconds())
	if runErr != nil {
		metrics.IncJobRun(job.Name, "error")
		s.log.Error().Err(runErr).Str("job", job.Name).Msg("job failed")
		return
	}
	metrics.IncJobRun(job.Name, "ok")
	if n > 0 {
		s.log.Info().Str("job", job.Name).Int("count", n).Msg("job finished")
	}
}

// cronLogger adapts zerolog to the cron.Logger interface.
type cronLogger struct {
	log *zerolog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
