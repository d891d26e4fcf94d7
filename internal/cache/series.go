package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
)

const (
	SeriesTTL = 10 * time.Minute
	ReportTTL = 24 * time.Hour
)

// SeriesSource is the underlying provider a SeriesCache reads through to.
type SeriesSource interface {
	GetSeries(ctx context.Context, code string, lookback int) (domain.Series, error)
}

// SeriesCache serves recent series from Redis and falls back to the source on
// a miss. Redis failures degrade to the source.
type SeriesCache struct {
	tracer trace.Tracer
	redis  RedisClient
	source SeriesSource
	ttl    time.Duration
	logger zerolog.Logger
}

func NewSeriesCache(tracer trace.Tracer, redisClient RedisClient, source SeriesSource, logger zerolog.Logger) *SeriesCache {
	return &SeriesCache{
		tracer: tracer,
		redis:  redisClient,
		source: source,
		ttl:    SeriesTTL,
		logger: logger.With().Str("component", "series-cache").Logger(),
	}
}

func seriesKey(code string, lookback int) string {
	return fmt.Sprintf("series:%s:%d", code, lookback)
}

func (c *SeriesCache) GetSeries(ctx context.Context, code string, lookback int) (domain.Series, error) {
	ctx, span := c.tracer.Start(ctx, "series-cache.get")
	defer span.End()
	span.SetAttributes(attribute.String("code", code), attribute.Int("lookback", lookback))

	key := seriesKey(code, lookback)
	if c.redis != nil {
		var cached domain.Series
		hit, err := getJSON(ctx, c.redis, key, &cached)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("redis cache read error")
		}
		if hit {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	s, err := c.source.GetSeries(ctx, code, lookback)
	if err != nil {
		return domain.Series{}, err
	}
	if c.redis != nil && s.Len() > 0 {
		if err := setJSON(ctx, c.redis, key, s, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("redis cache write error")
		}
	}
	return s, nil
}

// ReportCache keeps the last analysis report per instrument.
type ReportCache struct {
	redis RedisClient
	ttl   time.Duration
}

func NewReportCache(redisClient RedisClient) *ReportCache {
	return &ReportCache{redis: redisClient, ttl: ReportTTL}
}

func reportKey(code string) string { return "report:" + code }

func (c *ReportCache) Put(ctx context.Context, code string, report any) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return setJSON(ctx, c.redis, reportKey(code), report, c.ttl)
}

// Get decodes the cached report into dst and reports whether one was found.
func (c *ReportCache) Get(ctx context.Context, code string, dst any) (bool, error) {
	if c == nil || c.redis == nil {
		return false, nil
	}
	return getJSON(ctx, c.redis, reportKey(code), dst)
}

func setJSON(ctx context.Context, r RedisClient, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.Set(ctx, key, data, ttl).Err()
}

func getJSON(ctx context.Context, r RedisClient, key string, dst any) (bool, error) {
	data, err := r.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
