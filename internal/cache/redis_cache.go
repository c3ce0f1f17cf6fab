package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"phoneshop/backend/internal/domain"
)

type RedisProductCache struct {
	client *redis.Client
}

func NewRedisProductCache(addr string, password string, db int) *RedisProductCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisProductCache{client: client}
}

func (c *RedisProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisProductCache) Close() error {
	return c.client.Close()
}

func cacheKey(barcode string) string {
	return "barcode:" + barcode
}

func (c *RedisProductCache) Get(ctx context.Context, barcode string) (*domain.Product, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(barcode)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var product domain.Product
	if err := json.Unmarshal([]byte(val), &product); err != nil {
		return nil, false, err
	}
	return &product, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, barcode string, product *domain.Product, ttl time.Duration) error {
	if product == nil {
		return nil
	}
	payload, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(barcode), payload, ttl).Err()
}

func (c *RedisProductCache) Invalidate(ctx context.Context, barcode string) error {
	return c.client.Del(ctx, cacheKey(barcode)).Err()
}
