package throttle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/otzivi/authcore/internal/models"
)

const redisKeyPrefix = "login_attempt:"

// incrementScript performs increment-or-create in a single round trip so two
// concurrent failures from the same address both count. Returns
// {count, first_ms} after applying the increment and refreshing the TTL.
var incrementScript = redis.NewScript(`
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
if count == 1 then
    redis.call('HSET', KEYS[1], 'first', ARGV[1])
end
redis.call('HSET', KEYS[1], 'last', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
local first = redis.call('HGET', KEYS[1], 'first')
return {count, first}
`)

// clearScript reads and deletes the record atomically so a concurrent
// failure cannot slip between the read and the delete.
var clearScript = redis.NewScript(`
local fields = redis.call('HMGET', KEYS[1], 'count', 'first', 'last')
redis.call('DEL', KEYS[1])
return fields
`)

// RedisStore is a Store backed by Redis, for deployments where several
// instances must share one attempt budget per address. Retention is enforced
// by Redis key TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.AttemptRecord, error) {
	fields, err := s.client.HMGet(ctx, redisKeyPrefix+key, "count", "first", "last").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read attempt record: %w", err)
	}
	return decodeRecord(key, fields)
}

func (s *RedisStore) IncrementFailure(ctx context.Context, key string, retention time.Duration) (*models.AttemptRecord, error) {
	now := time.Now()
	result, err := incrementScript.Run(ctx, s.client,
		[]string{redisKeyPrefix + key},
		now.UnixMilli(), retention.Milliseconds(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to increment attempt record: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return nil, fmt.Errorf("unexpected increment script reply: %v", result)
	}

	count, err := toInt64(values[0])
	if err != nil {
		return nil, err
	}
	firstMs, err := toInt64(values[1])
	if err != nil {
		return nil, err
	}

	return &models.AttemptRecord{
		ClientKey:      key,
		FailureCount:   int(count),
		FirstFailureAt: time.UnixMilli(firstMs),
		LastFailureAt:  now,
	}, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) (*models.AttemptRecord, error) {
	result, err := clearScript.Run(ctx, s.client, []string{redisKeyPrefix + key}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to clear attempt record: %w", err)
	}

	fields, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected clear script reply: %v", result)
	}
	return decodeRecord(key, fields)
}

func decodeRecord(key string, fields []interface{}) (*models.AttemptRecord, error) {
	if len(fields) != 3 || fields[0] == nil {
		return nil, nil
	}

	count, err := toInt64(fields[0])
	if err != nil {
		return nil, err
	}
	firstMs, err := toInt64(fields[1])
	if err != nil {
		return nil, err
	}
	lastMs, err := toInt64(fields[2])
	if err != nil {
		return nil, err
	}

	return &models.AttemptRecord{
		ClientKey:      key,
		FailureCount:   int(count),
		FirstFailureAt: time.UnixMilli(firstMs),
		LastFailureAt:  time.UnixMilli(lastMs),
	}, nil
}

func toInt64(v interface{}) (int64, error) {
	switch value := v.(type) {
	case int64:
		return value, nil
	case string:
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed attempt record field %q: %w", value, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unexpected attempt record field type %T", v)
	}
}
