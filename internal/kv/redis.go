package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every record so a shared Redis instance can host
// other applications.
const keyPrefix = "tubedigest:"

// RedisStore implements Store on a Redis instance. Records are stored
// without TTL; eviction is explicit.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to the Redis instance at redisURL and verifies the
// connection with a ping.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, &StoreError{Op: "connect", Err: err}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, &StoreError{Op: "connect", Err: err}
	}

	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &StoreError{Op: "get", Key: key, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StoreError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Del(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, &StoreError{Op: "delete", Key: key, Err: err}
	}
	return n > 0, nil
}

func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(keyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, &StoreError{Op: "keys", Err: err}
	}
	return keys, nil
}

// Backup dumps every namespaced record to a JSON file at path, using the
// same {key: value} shape as the file store so backups are interchangeable.
func (s *RedisStore) Backup(ctx context.Context, path string) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return &StoreError{Op: "backup", Err: err}
	}

	dump := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		value, err := s.Get(ctx, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // deleted between scan and read
			}
			return &StoreError{Op: "backup", Key: key, Err: err}
		}
		if !json.Valid(value) {
			return &StoreError{Op: "backup", Key: key, Err: fmt.Errorf("record is not valid JSON")}
		}
		dump[key] = json.RawMessage(value)
	}

	writer, err := NewAtomicWriter(path)
	if err != nil {
		return &StoreError{Op: "backup", Err: err}
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(dump); err != nil {
		writer.Abort()
		return &StoreError{Op: "backup", Err: err}
	}
	if err := writer.Commit(); err != nil {
		return &StoreError{Op: "backup", Err: err}
	}
	return nil
}

// Close shuts down the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
