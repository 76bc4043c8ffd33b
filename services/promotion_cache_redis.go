package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yeremiapane/branch-ordering/models"
)

const defaultPromotionTTL = time.Hour

// RedisPromotionCache shares promotion entries between instances. The TTL
// only bounds memory; freshness comes from the version counter.
type RedisPromotionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPromotionCache(client *redis.Client, ttl time.Duration) *RedisPromotionCache {
	if ttl <= 0 {
		ttl = defaultPromotionTTL
	}
	return &RedisPromotionCache{client: client, ttl: ttl}
}

func versionKey(branchID uint) string {
	return fmt.Sprintf("promotions:branch:%d:version", branchID)
}

func entryKey(branchID uint, version uint64) string {
	return fmt.Sprintf("promotions:branch:%d:v%d", branchID, version)
}

func (r *RedisPromotionCache) Version(ctx context.Context, branchID uint) (uint64, error) {
	v, err := r.client.Get(ctx, versionKey(branchID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (r *RedisPromotionCache) Get(ctx context.Context, branchID uint, version uint64) ([]models.Promotion, bool, error) {
	data, err := r.client.Get(ctx, entryKey(branchID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var promos []models.Promotion
	if err := json.Unmarshal(data, &promos); err != nil {
		return nil, false, fmt.Errorf("decode cached promotions: %w", err)
	}
	return promos, true, nil
}

func (r *RedisPromotionCache) Set(ctx context.Context, branchID uint, version uint64, promos []models.Promotion) error {
	data, err := json.Marshal(promos)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, entryKey(branchID, version), data, r.ttl).Err()
}

func (r *RedisPromotionCache) Bump(ctx context.Context, branchID uint) error {
	return r.client.Incr(ctx, versionKey(branchID)).Err()
}
