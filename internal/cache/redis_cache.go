package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"uniondash/backend/internal/domain"
)

type RedisResumeCache struct {
	client *redis.Client
}

func NewRedisResumeCache(addr string, password string, db int) *RedisResumeCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisResumeCache{client: client}
}

func (c *RedisResumeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisResumeCache) Close() error {
	return c.client.Close()
}

func resumeKey(year int) string {
	return fmt.Sprintf("union:rfa:resumes:%d", year)
}

func (c *RedisResumeCache) Get(ctx context.Context, year int) ([]domain.ClientRebateResume, bool, error) {
	val, err := c.client.Get(ctx, resumeKey(year)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var resumes []domain.ClientRebateResume
	if err := json.Unmarshal([]byte(val), &resumes); err != nil {
		return nil, false, err
	}
	return resumes, true, nil
}

func (c *RedisResumeCache) Set(ctx context.Context, year int, resumes []domain.ClientRebateResume, ttl time.Duration) error {
	if resumes == nil {
		return nil
	}
	payload, err := json.Marshal(resumes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, resumeKey(year), payload, ttl).Err()
}

func (c *RedisResumeCache) Invalidate(ctx context.Context, year int) error {
	return c.client.Del(ctx, resumeKey(year)).Err()
}
