package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/config"
	httpapi "github.com/hippocratic-health/fraud-signal-engine/internal/api/http"
	"github.com/hippocratic-health/fraud-signal-engine/internal/bootstrap"
	fraudhttp "github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/http"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/service"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
)

const serviceName = "fraud-signal-engine"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.App.Environment, cfg.App.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	defer stores.Close(context.Background())

	svc := service.New(cfg.Engine.Config, stores.ServiceDeps(cfg.Engine.OutDir, cfg.Engine.DotBin))

	// interfaces must stay nil when the store is absent
	var alerts fraudhttp.AlertLister
	if stores.Alerts != nil {
		alerts = stores.Alerts
	}
	var reports fraudhttp.ReportReader
	if stores.Cache != nil {
		reports = stores.Cache
	}

	checks := map[string]httpapi.Pinger{"db": nil, "redis": nil, "neo4j": nil}
	if stores.DB != nil {
		checks["db"] = stores.DB
	}
	if stores.Redis != nil {
		checks["redis"] = httpapi.PingFunc(func(ctx context.Context) error { return stores.Redis.Ping(ctx).Err() })
	}
	if stores.Neo4j != nil {
		checks["neo4j"] = stores.Neo4j
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Checks:         checks,
		Fraud:          fraudhttp.New(svc, alerts, reports),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
