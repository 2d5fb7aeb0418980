package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
	"github.com/hippocratic-health/fraud-signal-engine/internal/scheduler"
)

const scheduledRunTimeout = 2 * time.Hour

// RunSchedule runs analyze-db on ENGINE_SCHEDULE until ctx is cancelled.
func RunSchedule(ctx context.Context) error {
	svc, stores, cfg, err := setup(ctx, "")
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())
	defer logger.Sync()

	if stores.Snapshots == nil {
		return fmt.Errorf("schedule requires a database (DB_DSN or DB_HOST)")
	}

	s, err := scheduler.New(cfg.Engine.Schedule, func(ctx context.Context) error {
		_, err := svc.RunFromStore(ctx)
		return err
	}, scheduledRunTimeout)
	if err != nil {
		return err
	}

	s.Start()
	logger.Info("worker scheduling analyses", zap.String("schedule", cfg.Engine.Schedule))
	<-ctx.Done()

	logger.Info("shutting down scheduler")
	<-s.Stop().Done()
	return nil
}
