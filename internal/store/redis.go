package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
)

// Redis backs the store with a shared Redis instance so multiple API
// replicas see the same locks and holds. Redis owns TTL enforcement.
type Redis struct {
	cli *redis.Client
}

func NewRedis(addr string, db int) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &Redis{cli: client}
}

// Ping verifies connectivity at startup.
func (r *Redis) Ping() error {
	if err := r.cli.Ping().Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.cli.Close()
}

func (r *Redis) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := r.cli.Get(key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.cli.Set(key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := r.cli.SetNX(key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (r *Redis) Delete(_ context.Context, key string) error {
	if err := r.cli.Del(key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// compareAndDeleteScript deletes the key only while it still holds the
// expected value. GET and DEL run inside one script, so they are atomic on
// the server.
var compareAndDeleteScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

func (r *Redis) CompareAndDelete(_ context.Context, key string, expected []byte) (bool, error) {
	res, err := compareAndDeleteScript.Run(r.cli, []string{key}, expected).Result()
	if err != nil {
		return false, fmt.Errorf("redis compare-and-delete %s: %w", key, err)
	}
	n, ok := res.(int64)
	return ok && n > 0, nil
}

func (r *Redis) List(_ context.Context, prefix string) (map[string][]byte, error) {
	keys, err := r.cli.Keys(prefix + "*").Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys %s*: %w", prefix, err)
	}
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := r.cli.Get(key).Bytes()
		if err == redis.Nil {
			// Expired between KEYS and GET.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}
		out[key] = value
	}
	return out, nil
}
