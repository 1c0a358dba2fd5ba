// Package memory implements the rate limit store with in-process sliding
// windows. It backs single-node deployments and serves as the fallback
// while the shared store is unreachable.
package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"custos/internal/ratelimit"
	"custos/pkg/requestcontext"
)

type window struct {
	timestamps []time.Time
	span       time.Duration
}

// drop removes timestamps that have left the window.
func (w *window) drop(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]
}

// Store keeps one sliding window per key. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*window
}

func New() *Store {
	return &Store{buckets: make(map[string]*window)}
}

// Allow records one request against the key's window and reports whether
// it fit within the limit. A true sliding window: requests expire exactly
// one window after they arrived, so there is no burst at period edges.
func (s *Store) Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.buckets[key]
	if w == nil {
		w = &window{span: limit.Window}
		s.buckets[key] = w
	}
	w.span = limit.Window
	w.drop(now)

	if len(w.timestamps) >= limit.Requests {
		resetAt := w.timestamps[0].Add(limit.Window)
		return &ratelimit.Result{
			Allowed:    false,
			Limit:      limit.Requests,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}

	w.timestamps = append(w.timestamps, now)
	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - len(w.timestamps),
		ResetAt:   w.timestamps[0].Add(limit.Window),
	}, nil
}

// Reset clears the window for a key.
func (s *Store) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

func retryAfter(now, resetAt time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
