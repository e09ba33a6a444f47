package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/srgjo27/puja_booking/internal/core/domain"
)

const DefaultBreakdownTTL = 24 * time.Hour

// BreakdownCache stores settled breakdowns in Redis. A breakdown never changes once written, so
// the TTL only bounds memory.
type BreakdownCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewBreakdownCache(client redis.Cmdable, ttl time.Duration) *BreakdownCache {
	if ttl <= 0 {
		ttl = DefaultBreakdownTTL
	}
	return &BreakdownCache{client: client, ttl: ttl}
}

func BreakdownKey(bookingID uuid.UUID) string {
	return fmt.Sprintf("booking:breakdown:%s", bookingID)
}

func (c *BreakdownCache) Get(ctx context.Context, bookingID uuid.UUID) (*domain.MoneyBreakdown, error) {
	raw, err := c.client.Get(ctx, BreakdownKey(bookingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var bd domain.MoneyBreakdown
	if err := json.Unmarshal(raw, &bd); err != nil {
		return nil, fmt.Errorf("decode cached breakdown: %w", err)
	}
	return &bd, nil
}

func (c *BreakdownCache) Set(ctx context.Context, bookingID uuid.UUID, breakdown domain.MoneyBreakdown) error {
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, BreakdownKey(bookingID), raw, c.ttl).Err()
}
