package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

const (
	runKeyPrefix = "fraud:run:"   // fraud:run:{run_id} -> report JSON
	latestKey    = "fraud:latest" // run id of the newest report
	defaultTTL   = 7 * 24 * time.Hour
)

// ReportCache keeps recent run reports in Redis.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ReportCache{client: client, ttl: ttl}
}

// Put stores report under runID and marks it as the latest run.
func (c *ReportCache) Put(ctx context.Context, runID string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, runKeyPrefix+runID, data, c.ttl)
	pipe.Set(ctx, latestKey, runID, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

func (c *ReportCache) Get(ctx context.Context, runID string) (json.RawMessage, error) {
	data, err := c.client.Get(ctx, runKeyPrefix+runID).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return json.RawMessage(data), nil
}

// Latest returns the id and report of the newest cached run.
func (c *ReportCache) Latest(ctx context.Context) (string, json.RawMessage, error) {
	runID, err := c.client.Get(ctx, latestKey).Result()
	if err == redis.Nil {
		return "", nil, domain.ErrRunNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	report, err := c.Get(ctx, runID)
	if err != nil {
		return "", nil, err
	}
	return runID, report, nil
}
