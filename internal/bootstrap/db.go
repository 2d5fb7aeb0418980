package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/config"
	"github.com/hippocratic-health/fraud-signal-engine/internal/db"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/graph/export"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/repository"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/service"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
	"github.com/hippocratic-health/fraud-signal-engine/internal/storage/postgres"
	"github.com/hippocratic-health/fraud-signal-engine/internal/storage/sqlite"
)

// Stores holds every external collaborator the engine was configured with.
// Members stay nil when their section of the configuration is empty.
type Stores struct {
	DB        *db.DB
	AlertDB   *sql.DB
	Alerts    *repository.AlertRepository
	Snapshots *repository.SnapshotRepository
	Redis     *redis.Client
	Cache     *repository.ReportCache
	Neo4j     *export.Neo4jDriver
}

// OpenStores connects to the configured database, alert store, Redis and
// Neo4j. A database or alert store that cannot be reached is fatal; Redis
// and Neo4j are optional and only logged.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}

	if cfg.Database.Enabled() {
		pool, err := db.Open(ctx, db.Options{
			DSN:      postgres.DSN(&cfg.Database),
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, err
		}
		s.DB = pool
		s.Snapshots = repository.NewSnapshotRepository(pool.Pool)
	}

	if err := s.openAlertStore(ctx, cfg); err != nil {
		s.Close(ctx)
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, report cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			client.Close()
		} else {
			s.Redis = client
			s.Cache = repository.NewReportCache(client, cfg.Redis.TTL)
		}
	}

	if cfg.Neo4j.URI != "" {
		driver, err := export.NewNeo4jDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			logger.Warn("neo4j unavailable, graph export disabled", zap.String("uri", cfg.Neo4j.URI), zap.Error(err))
		} else {
			s.Neo4j = driver
		}
	}

	return s, nil
}

func (s *Stores) openAlertStore(ctx context.Context, cfg *config.Config) error {
	var (
		conn    *sql.DB
		dialect string
		err     error
	)
	switch cfg.AlertStore.Driver {
	case config.AlertDriverPostgres:
		conn, err = postgres.NewConnection(&cfg.Database)
		dialect = repository.DialectPostgres
	case config.AlertDriverSQLite:
		conn, err = sqlite.Open(cfg.AlertStore.SQLitePath)
		dialect = repository.DialectSQLite
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("alert store: %w", err)
	}

	alerts := repository.NewAlertRepository(conn, dialect)
	if err := alerts.EnsureSchema(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("alert store schema: %w", err)
	}
	s.AlertDB = conn
	s.Alerts = alerts
	return nil
}

// ServiceDeps wires the open stores into the analysis service. Typed nil
// pointers must not leak into the interfaces, so each member is checked.
func (s *Stores) ServiceDeps(outDir, dotBin string) service.Deps {
	deps := service.Deps{OutDir: outDir, DotBin: dotBin}
	if s.Alerts != nil {
		deps.Alerts = s.Alerts
	}
	if s.Cache != nil {
		deps.Cache = s.Cache
	}
	if s.Snapshots != nil {
		deps.Snapshots = s.Snapshots
	}
	if s.Neo4j != nil {
		deps.Neo4j = s.Neo4j
	}
	return deps
}

func (s *Stores) Close(ctx context.Context) {
	if s.Neo4j != nil {
		_ = s.Neo4j.Close(ctx)
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.AlertDB != nil {
		_ = s.AlertDB.Close()
	}
	s.DB.Close()
}
