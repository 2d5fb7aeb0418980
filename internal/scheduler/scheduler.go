// Package scheduler runs the store-backed analysis on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	job     Job
	timeout time.Duration
}

// New registers job under the five-field cron spec. A run that is still
// going when the next tick fires causes that tick to be skipped.
func New(spec string, job Job, timeout time.Duration) (*Scheduler, error) {
	log := cronLogger{l: logger.Get().Sugar()}
	c := cron.New(cron.WithLogger(log), cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)))

	s := &Scheduler{cron: c, job: job, timeout: timeout}
	if _, err := c.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce executes the job immediately with the configured timeout.
func (s *Scheduler) RunOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	logger.Info("scheduled analysis started")
	if err := s.job(ctx); err != nil {
		logger.Error("scheduled analysis failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	logger.Info("scheduled analysis completed", zap.Duration("elapsed", time.Since(start)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		logger.Info("cron scheduler started", zap.Time("next_run", e.Next))
	}
}

// Stop halts the scheduler and returns a context that is done once any
// running job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
