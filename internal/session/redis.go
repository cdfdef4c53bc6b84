package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/studio-engine/internal/models"
)

const (
	defaultKeyPrefix = "studio:"
	// keys outlive the session so the cleaner can still release its state
	expiryGrace = time.Hour
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps sessions as JSON values with a TTL.
// A sorted set indexes tokens by expiry for the cleaner.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &RedisStore{client: client, prefix: prefix}, nil
}

func (r *RedisStore) key(token string) string {
	return r.prefix + "session:" + token
}

func (r *RedisStore) indexKey() string {
	return r.prefix + "sessions:expiry"
}

// Save writes the session and indexes its expiry
func (r *RedisStore) Save(ctx context.Context, s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(s.ExpiresAt) + expiryGrace
	if ttl < expiryGrace {
		ttl = expiryGrace
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(s.Token), data, ttl)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{
			Score:  float64(s.ExpiresAt.Unix()),
			Member: s.Token,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads a session. Missing keys return nil, nil.
func (r *RedisStore) Load(ctx context.Context, token string) (*models.Session, error) {
	data, err := r.client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Delete removes the session and its index entry
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(token))
		pipe.ZRem(ctx, r.indexKey(), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Expired lists tokens whose expiry score is before now
func (r *RedisStore) Expired(ctx context.Context, now time.Time) ([]string, error) {
	tokens, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	return tokens, nil
}

// HealthCheck pings Redis
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
