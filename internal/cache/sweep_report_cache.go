package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockalert/internal/alerting"
	"github.com/andresuchdata/stockalert/internal/config"
	"github.com/redis/go-redis/v9"
)

const sweepReportKey = "stock_sweep:last"

// SweepReportCache shares the latest sweep report between service instances.
type SweepReportCache interface {
	GetLast(ctx context.Context) (alerting.SweepReport, bool, error)
	SetLast(ctx context.Context, report alerting.SweepReport) error
}

type redisSweepReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSweepReportCache struct{}

func NewSweepReportCache(cfg config.CacheConfig) (SweepReportCache, error) {
	if !cfg.Enabled {
		return &noopSweepReportCache{}, nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisSweepReportCache(client, cfg.ReportTTL), nil
}

func NewRedisSweepReportCache(client *redis.Client, ttl time.Duration) SweepReportCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisSweepReportCache{client: client, ttl: ttl}
}

func NewNoopSweepReportCache() SweepReportCache {
	return &noopSweepReportCache{}
}

func (c *redisSweepReportCache) GetLast(ctx context.Context) (alerting.SweepReport, bool, error) {
	payload, err := c.client.Get(ctx, sweepReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return alerting.SweepReport{}, false, nil
	}
	if err != nil {
		return alerting.SweepReport{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report alerting.SweepReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return alerting.SweepReport{}, false, fmt.Errorf("decode sweep report cache: %w", err)
	}

	return report, true, nil
}

func (c *redisSweepReportCache) SetLast(ctx context.Context, report alerting.SweepReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode sweep report cache: %w", err)
	}

	if err := c.client.Set(ctx, sweepReportKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopSweepReportCache) GetLast(ctx context.Context) (alerting.SweepReport, bool, error) {
	return alerting.SweepReport{}, false, nil
}

func (n *noopSweepReportCache) SetLast(ctx context.Context, report alerting.SweepReport) error {
	return nil
}
