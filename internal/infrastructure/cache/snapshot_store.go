package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
	"github.com/davidleathers/outreach-compliance-backend/internal/infrastructure/config"
)

// DNC snapshot key suffixes, appended to the configured key prefix
const (
	snapshotDataSuffix    = ":data"
	snapshotVersionSuffix = ":version"
)

// Number of optimistic-lock retries when publishers race
const maxPublishRetries = 5

// SnapshotStore shares registry snapshots between API replicas through Redis.
// Data and version live under separate keys; a publish only succeeds when its
// version is newer than the cached one.
type SnapshotStore struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration
}

// NewSnapshotStore connects to Redis and verifies the connection
func NewSnapshotStore(cfg *config.RedisConfig, logger *zap.Logger) (*SnapshotStore, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Health check with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("dnc snapshot store initialized",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB),
		zap.String("key_prefix", cfg.SnapshotKeyPrefix))

	return NewSnapshotStoreWithClient(client, logger, cfg.SnapshotKeyPrefix, cfg.SnapshotTTL), nil
}

// NewSnapshotStoreWithClient wraps an existing client
func NewSnapshotStoreWithClient(client *redis.Client, logger *zap.Logger, prefix string, ttl time.Duration) *SnapshotStore {
	if prefix == "" {
		prefix = "roc:dnc:snapshot"
	}
	return &SnapshotStore{
		client: client,
		logger: logger,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Publish stores the snapshot unless a newer version is already cached
func (s *SnapshotStore) Publish(ctx context.Context, snap *dnc.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is required")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot marshal failed: %w", err)
	}

	dataKey, versionKey := s.prefix+snapshotDataSuffix, s.prefix+snapshotVersionSuffix

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && current >= snap.Version {
			return ErrStaleSnapshot{Published: snap.Version, Current: current}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, dataKey, data, s.ttl)
			pipe.Set(ctx, versionKey, strconv.FormatInt(snap.Version, 10), s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxPublishRetries; i++ {
		err = s.client.Watch(ctx, txf, versionKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		break
	}

	var stale ErrStaleSnapshot
	switch {
	case err == nil:
		s.logger.Debug("dnc snapshot published",
			zap.Int64("version", snap.Version),
			zap.Int("entries", len(snap.Entries)),
			zap.Int("overrides", len(snap.Overrides)))
		return nil
	case errors.As(err, &stale):
		return err
	default:
		s.logger.Error("dnc snapshot publish failed",
			zap.Int64("version", snap.Version),
			zap.Error(err))
		return fmt.Errorf("snapshot publish failed: %w", err)
	}
}

// Latest returns the most recently published snapshot
func (s *SnapshotStore) Latest(ctx context.Context) (*dnc.Snapshot, error) {
	key := s.prefix + snapshotDataSuffix

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheKeyNotFound{Key: key}
		}
		s.logger.Error("dnc snapshot get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("snapshot get failed: %w", err)
	}

	var snap dnc.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot unmarshal failed: %w", err)
	}
	return &snap, nil
}

// Version returns the cached snapshot version, or 0 when nothing is cached
func (s *SnapshotStore) Version(ctx context.Context) (int64, error) {
	v, err := s.client.Get(ctx, s.prefix+snapshotVersionSuffix).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("snapshot version get failed: %w", err)
	}
	return v, nil
}

// Ping checks connectivity for health reporting
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the cache connection
func (s *SnapshotStore) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Error("redis close failed", zap.Error(err))
		return fmt.Errorf("redis close failed: %w", err)
	}

	s.logger.Info("dnc snapshot store closed")
	return nil
}
