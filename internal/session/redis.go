package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"freres-bot/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	lockTTL       = 10 * time.Second
	lockRetryWait = 50 * time.Millisecond
	lockAttempts  = 40
)

// RedisStore persists sessions as JSON documents in Redis, one key per user.
// A SetNX lock per user serializes read-modify-write cycles across
// instances, which makes multi-instance deployments safe.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to Redis and returns a session store. A zero ttl
// keeps sessions forever.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func sessionKey(userID string) string { return fmt.Sprintf("session:%s", userID) }
func lockKey(userID string) string    { return fmt.Sprintf("lock:session:%s", userID) }

func (r *RedisStore) acquireLock(ctx context.Context, userID string) error {
	for i := 0; i < lockAttempts; i++ {
		ok, err := r.rdb.SetNX(ctx, lockKey(userID), "1", lockTTL).Result()
		if err != nil {
			return fmt.Errorf("acquire session lock: %w", err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
	return fmt.Errorf("session lock timeout for user %s", userID)
}

func (r *RedisStore) releaseLock(ctx context.Context, userID string) {
	_ = r.rdb.Del(ctx, lockKey(userID)).Err()
}

func (r *RedisStore) load(ctx context.Context, userID string) (*models.Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		return models.NewSession(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) save(ctx context.Context, s *models.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.UserID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Update implements Store.
func (r *RedisStore) Update(ctx context.Context, userID string, fn func(*models.Session) error) error {
	if err := r.acquireLock(ctx, userID); err != nil {
		return err
	}
	defer r.releaseLock(ctx, userID)

	s, err := r.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now()
	return r.save(ctx, s)
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, userID string) (*models.Session, error) {
	return r.load(ctx, userID)
}
