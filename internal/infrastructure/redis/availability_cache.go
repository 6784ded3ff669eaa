package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// AvailabilityCache は公演の空席数をキャッシュする
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetAvailable は公演の空席数をキャッシュから取得する。キャッシュミスは ok=false
func (c *AvailabilityCache) GetAvailable(ctx context.Context, showID int64) (int, bool, error) {
	val, err := c.client.Get(ctx, availableKey(showID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "キャッシュ取得に失敗")
	}
	return val, true, nil
}

// SetAvailable は公演の空席数をキャッシュに保存する
func (c *AvailabilityCache) SetAvailable(ctx context.Context, showID int64, seats int, ttl time.Duration) error {
	if err := c.client.Set(ctx, availableKey(showID), seats, ttl).Err(); err != nil {
		return errors.Wrap(err, "キャッシュ保存に失敗")
	}
	return nil
}

// Invalidate は公演のキャッシュを無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, showID int64) error {
	if err := c.client.Del(ctx, availableKey(showID)).Err(); err != nil {
		return errors.Wrap(err, "キャッシュ無効化に失敗")
	}
	return nil
}

func availableKey(showID int64) string {
	return fmt.Sprintf("shows:available:%d", showID)
}
