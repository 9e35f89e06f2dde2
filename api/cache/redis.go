package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Board/api/config"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

var errNotInitialized = errors.New("redis client not initialized")

// PostTTL bounds how long a cached post may lag behind the database.
const PostTTL = 5 * time.Minute

func PostKey(postID uint) string {
	return fmt.Sprintf("post:%d", postID)
}

// Init connects using either:
// - REDIS_URL (hosted Redis, rediss:// enables TLS)
// - or REDIS_ADDR with optional credentials
// Nothing is connected when neither is set; every helper then behaves as a miss.
func Init(cfg config.Config) error {
	switch {
	case cfg.RedisURL != "":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		Client = redis.NewClient(opt)

	case cfg.RedisAddr != "":
		Client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})

	default:
		Client = nil
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := Client.Ping(ctx).Err(); err != nil {
		_ = Client.Close()
		Client = nil
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	return nil
}

func Get(ctx context.Context, key string) (string, error) {
	if Client == nil {
		return "", errNotInitialized
	}

	val, err := Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if Client == nil {
		return errNotInitialized
	}
	return Client.Set(ctx, key, value, ttl).Err()
}

func Delete(ctx context.Context, keys ...string) error {
	if Client == nil || len(keys) == 0 {
		return nil
	}
	return Client.Del(ctx, keys...).Err()
}

// GetJSON decodes the cached value for key into dst. It reports false on a
// miss, an unconfigured client or an undecodable entry.
func GetJSON(ctx context.Context, key string, dst interface{}) bool {
	cached, err := Get(ctx, key)
	if err != nil || cached == "" {
		return false
	}
	if err := json.Unmarshal([]byte(cached), dst); err != nil {
		_ = Delete(ctx, key)
		return false
	}
	return true
}

func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if Client == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Set(ctx, key, jsonBytes, ttl)
}
