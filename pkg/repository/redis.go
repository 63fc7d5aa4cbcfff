package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/example/foodcart/pkg/config"
	"github.com/example/foodcart/pkg/models"
	"github.com/go-redis/redis/v8"
)

const coordinatesKeyPrefix = "coords:"

// RedisRepository is the Redis-backed alternative to CoordinateRepository.
// Entries expire after ttl, so an expired key reads the same as a stale one.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(cfg *config.RedisConfig, ttl time.Duration) *RedisRepository {
	return NewRedisRepositoryWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), ttl)
}

func NewRedisRepositoryWithClient(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisRepository) LoadCoordinates(ctx context.Context, address string) (*models.AddressCoordinates, error) {
	var entry models.AddressCoordinates
	err := r.GetJSON(ctx, coordinatesKeyPrefix+address, &entry)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *RedisRepository) SaveCoordinates(ctx context.Context, entry *models.AddressCoordinates) error {
	return r.SetJSON(ctx, coordinatesKeyPrefix+entry.Address, entry, r.ttl)
}

func (r *RedisRepository) DeleteCoordinates(ctx context.Context, address string) error {
	return r.client.Del(ctx, coordinatesKeyPrefix+address).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
