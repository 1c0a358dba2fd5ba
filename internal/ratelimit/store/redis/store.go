// Package redis implements the rate limit store on Redis sorted sets, one
// set per bucket with request timestamps as scores. All API replicas
// share the same windows, so limits hold across the fleet.
package redis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"custos/internal/ratelimit"
	"custos/pkg/requestcontext"
)

// Store records requests in Redis. Safe for concurrent use.
type Store struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Allow reserves a slot in the key's window, then releases it again when
// the window turns out to be full. Each concurrent caller counts its own
// reservation, so the limit holds without a server-side script.
//
// Scores are unix milliseconds; members are random so simultaneous
// requests never collapse into one entry.
func (s *Store) Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	now := requestcontext.Now(ctx)
	cutoff := now.Add(-limit.Window).UnixMilli()
	member := uuid.NewString()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, limit.Window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit window update: %w", err)
	}

	count := int(countCmd.Val())
	resetAt := oldestScoreReset(oldestCmd.Val(), now, limit.Window)

	if count > limit.Requests {
		if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
			return nil, fmt.Errorf("rate limit reservation release: %w", err)
		}
		return &ratelimit.Result{
			Allowed:    false,
			Limit:      limit.Requests,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}

	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - count,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the window for a key.
func (s *Store) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("rate limit window reset: %w", err)
	}
	return nil
}

func oldestScoreReset(oldest []redis.Z, now time.Time, window time.Duration) time.Time {
	if len(oldest) == 0 {
		return now.Add(window)
	}
	return time.UnixMilli(int64(oldest[0].Score)).UTC().Add(window)
}

func retryAfter(now, resetAt time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
