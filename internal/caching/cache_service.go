package caching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "paycore"

type CacheService interface {
	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// AcquireLock takes key for at most ttl and returns the token that
	// releases it. An empty token means someone else holds the key.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	// ReleaseLock drops key only while it is still held under token.
	ReleaseLock(ctx context.Context, key, token string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisCacheService(addr, password string, db int, logger *zap.Logger) CacheService {
	// Accept redis://host:port as well as host:port
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on startup", zap.String("addr", parsedAddr), zap.Error(err))
	}

	return &redisCacheService{client: client, logger: logger}
}

func cacheKey(kind, key string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, kind, key)
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := cacheKey("ratelimit", key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first request
	if count == 1 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			r.logger.Warn("failed to set rate limit expiry", zap.String("key", k), zap.Error(err))
		}
	}

	return count > int64(limit), nil
}

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *redisCacheService) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, cacheKey("lock", key), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (r *redisCacheService) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseLockScript.Run(ctx, r.client, []string{cacheKey("lock", key)}, token).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
