package iocache

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// redisKeyPrefix namespaces every progress set.
const redisKeyPrefix = "injuryscope:progress:"

// RedisProgressStore keeps one Redis set per namespace.
type RedisProgressStore struct {
	client *redis.Client
}

var _ contract.ProgressStore = &RedisProgressStore{} // Compile-time check

// NewRedisProgressStore connects to the Redis URL in connStr.
func NewRedisProgressStore(ctx context.Context, connStr string) (*RedisProgressStore, error) {
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Redis URL. Expected format: redis://[:password@]host:port/db")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis. Check that the server is running")
	}
	return &RedisProgressStore{client: client}, nil
}

func redisKey(namespace string) string {
	return redisKeyPrefix + namespace
}

// Has reports whether key was marked in namespace.
func (r *RedisProgressStore) Has(ctx context.Context, namespace, key string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, redisKey(namespace), key).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to query progress marker")
	}
	return ok, nil
}

// Mark records key in namespace. SADD ignores existing members.
func (r *RedisProgressStore) Mark(ctx context.Context, namespace, key string) error {
	if err := r.client.SAdd(ctx, redisKey(namespace), key).Err(); err != nil {
		return errors.Wrap(err, "failed to insert progress marker")
	}
	return nil
}

// Keys returns the sorted keys marked in namespace.
func (r *RedisProgressStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	keys, err := r.client.SMembers(ctx, redisKey(namespace)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query progress markers")
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every marker in namespace.
func (r *RedisProgressStore) Clear(ctx context.Context, namespace string) error {
	if err := r.client.Del(ctx, redisKey(namespace)).Err(); err != nil {
		return errors.Wrapf(err, "failed to clear progress namespace %s", namespace)
	}
	return nil
}

// GetStatus returns marker counts per namespace.
func (r *RedisProgressStore) GetStatus(ctx context.Context) (schema.ProgressStatus, error) {
	status := schema.ProgressStatus{
		Backend:    string(schema.RedisBackend),
		Connected:  true,
		Namespaces: make(map[string]int64),
	}

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		count, err := r.client.SCard(ctx, key).Result()
		if err != nil {
			return status, errors.Wrapf(err, "failed to count %s", key)
		}
		status.Namespaces[strings.TrimPrefix(key, redisKeyPrefix)] = count
		status.TotalUnits += count
	}
	if err := iter.Err(); err != nil {
		status.Connected = false
		return status, errors.Wrap(err, "failed to scan progress namespaces")
	}
	return status, nil
}

// Close closes the Redis client.
func (r *RedisProgressStore) Close() error {
	return r.client.Close()
}

// clearRedisProgress deletes every progress set.
func clearRedisProgress(ctx context.Context, connStr string) error {
	store, err := NewRedisProgressStore(ctx, connStr)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	iter := store.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "failed to scan progress namespaces")
	}
	if len(keys) == 0 {
		return nil
	}
	return store.client.Del(ctx, keys...).Err()
}
