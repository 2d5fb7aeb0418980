package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/config"
	"github.com/hippocratic-health/fraud-signal-engine/internal/bootstrap"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/service"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
)

// setup loads configuration, starts logging and opens every configured
// store. outDir overrides OUT_DIR when non-empty.
func setup(ctx context.Context, outDir string) (*service.Service, *bootstrap.Stores, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.App.Environment, cfg.App.LogLevel); err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	if outDir != "" {
		cfg.Engine.OutDir = outDir
	}

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	logger.Info("worker configured",
		zap.String("out_dir", cfg.Engine.OutDir),
		zap.String("alert_store", cfg.AlertStore.Driver),
		zap.Bool("database", stores.DB != nil),
		zap.Bool("report_cache", stores.Cache != nil),
		zap.Bool("neo4j", stores.Neo4j != nil),
		zap.Int64("seed", cfg.Engine.Seed),
	)

	svc := service.New(cfg.Engine.Config, stores.ServiceDeps(cfg.Engine.OutDir, cfg.Engine.DotBin))
	return svc, stores, cfg, nil
}
