package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/storage"
)

var _ storage.RunCache = (*RedisCache)(nil)

// RedisConfig configures the run cache connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Logger   *logrus.Logger
}

// RedisCache keeps a capped list of recent run reports and fans them out
// over pub/sub.
type RedisCache struct {
	client *redis.Client
	pubsub *PubSubManager
	logger *logrus.Logger
}

func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.Addr, err)
	}

	rc := NewRedisCacheFromClient(client, cfg.Logger)
	rc.logger.WithField("addr", cfg.Addr).Info("connected to Redis")
	return rc, nil
}

// NewRedisCacheFromClient wraps an existing client without pinging it.
func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{
		client: client,
		pubsub: NewPubSubManager(client, logger),
		logger: logger,
	}
}

// Client exposes the connection for stores sharing it, such as feature flags.
func (r *RedisCache) Client() redis.Cmdable {
	return r.client
}

// Record pushes the report onto the recent list, trims it and publishes it
// together with its settlements.
func (r *RedisCache) Record(ctx context.Context, report *models.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentRuns, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentRuns, 0, constants.MaxRecentRuns-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store run report: %w", err)
	}

	if err := r.pubsub.PublishRun(ctx, report, data); err != nil {
		return err
	}
	for _, s := range report.Settlements() {
		if err := r.pubsub.PublishSettlement(ctx, &s); err != nil {
			return err
		}
	}
	return nil
}

// RecentRuns returns up to limit reports, newest first. Entries that no
// longer decode are skipped.
func (r *RedisCache) RecentRuns(ctx context.Context, limit int64) ([]*models.RunReport, error) {
	if limit <= 0 || limit > constants.MaxRecentRuns {
		limit = constants.MaxRecentRuns
	}

	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentRuns, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent runs: %w", err)
	}

	out := make([]*models.RunReport, 0, len(vals))
	for _, v := range vals {
		var rep models.RunReport
		if err := json.Unmarshal([]byte(v), &rep); err != nil {
			r.logger.WithError(err).Warn("skipping undecodable run report")
			continue
		}
		out = append(out, &rep)
	}
	return out, nil
}

// SubscribeRuns streams published reports until ctx is done.
func (r *RedisCache) SubscribeRuns(ctx context.Context) (<-chan *models.RunReport, error) {
	return r.pubsub.SubscribeRuns(ctx, constants.PubSubChannelRuns)
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
