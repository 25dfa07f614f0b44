package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arunvm123/villabooking/availability"
	"github.com/redis/go-redis/v9"
)

type RedisCacheRepository struct {
	client *redis.Client
}

func NewRedisCacheRepository(redisURL, password string, db int) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCacheRepository{client: client}, nil
}

// Client exposes the underlying connection so the distributed lock can share it.
func (r *RedisCacheRepository) Client() *redis.Client {
	return r.client
}

// Cache key generator
func (r *RedisCacheRepository) calendarKey(key string) string {
	return fmt.Sprintf("calendar:%s", key)
}

type cachedRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GetCalendar retrieves a parsed calendar from cache
func (r *RedisCacheRepository) GetCalendar(ctx context.Context, key string) ([]availability.DateRange, bool, error) {
	data, err := r.client.Get(ctx, r.calendarKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}
		return nil, false, err
	}

	var stored []cachedRange
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached calendar: %w", err)
	}

	ranges := make([]availability.DateRange, 0, len(stored))
	for _, s := range stored {
		rg, err := availability.ParseDateRange(s.Start, s.End)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode cached calendar: %w", err)
		}
		ranges = append(ranges, rg)
	}

	return ranges, true, nil
}

// SetCalendar stores a parsed calendar in cache
func (r *RedisCacheRepository) SetCalendar(ctx context.Context, key string, ranges []availability.DateRange, ttl time.Duration) error {
	stored := make([]cachedRange, 0, len(ranges))
	for _, rg := range ranges {
		stored = append(stored, cachedRange{
			Start: rg.Start.Format(availability.DateLayout),
			End:   rg.End.Format(availability.DateLayout),
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, r.calendarKey(key), data, ttl).Err()
}

// InvalidateCalendar removes a calendar from cache
func (r *RedisCacheRepository) InvalidateCalendar(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.calendarKey(key)).Err()
}

// Ping checks if Redis is healthy
func (r *RedisCacheRepository) Ping() error {
	return r.client.Ping(context.Background()).Err()
}
