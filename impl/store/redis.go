package store

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each key as a Redis sorted set with every member at score zero.
// Redis orders equal-score members lexicographically by their bytes so a rank range
// is an alphabetical range.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore from a URL like redis://127.0.0.1:6379/. No
// connection is made until the first command.
func NewRedisStore(redisUrl string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisUrl)
	if err != nil {
		return nil, &UnavailableError{Op: "open", Err: err}
	}
	return &RedisStore{
		client: redis.NewClient(opts),
	}, nil
}

func (rs *RedisStore) Clear(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, key).Err(); err != nil {
		return &UnavailableError{Op: "clear", Err: err}
	}
	return nil
}

func (rs *RedisStore) InsertAll(ctx context.Context, key string, members []string) error {
	if len(members) == 0 {
		return nil
	}
	if err := rs.client.ZAdd(ctx, key, zMembers(members)...).Err(); err != nil {
		return &UnavailableError{Op: "insert", Err: err}
	}
	return nil
}

// Replace builds the new set under a uniquely named staging key and renames it over
// the passed key. The three commands run in one MULTI/EXEC so no client ever sees the
// key missing or half populated.
func (rs *RedisStore) Replace(ctx context.Context, key string, members []string) error {
	if len(members) == 0 {
		return rs.Clear(ctx, key)
	}
	staging := key + ":staging:" + uuid.NewString()
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, staging)
		pipe.ZAdd(ctx, staging, zMembers(members)...)
		pipe.Rename(ctx, staging, key)
		return nil
	})
	if err != nil {
		return &UnavailableError{Op: "replace", Err: err}
	}
	return nil
}

func (rs *RedisStore) Cardinality(ctx context.Context, key string) (int64, error) {
	card, err := rs.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, &UnavailableError{Op: "cardinality", Err: err}
	}
	return card, nil
}

func (rs *RedisStore) SortedRange(ctx context.Context, key string, offset, limit int64) ([]string, error) {
	if offset < 0 || limit <= 0 {
		return []string{}, nil
	}
	// a stop of -1 is the last member
	stop := int64(-1)
	if limit <= math.MaxInt64-offset {
		stop = offset + limit - 1
	}
	members, err := rs.client.ZRange(ctx, key, offset, stop).Result()
	if err != nil {
		return nil, &UnavailableError{Op: "range", Err: err}
	}
	return members, nil
}

func (rs *RedisStore) Ping(ctx context.Context) error {
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return &UnavailableError{Op: "ping", Err: err}
	}
	return nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func zMembers(members []string) []redis.Z {
	z := make([]redis.Z, len(members))
	for i, m := range members {
		z[i] = redis.Z{Score: 0, Member: m}
	}
	return z
}
