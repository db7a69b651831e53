// Package ratelimit implements a fixed one-minute window request counter.
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "elbiefit/pkg/errors"
)

// WindowSeconds is the length of a counting window
const WindowSeconds = 60

// Counter atomically bumps the hit count of one client in one window and
// returns the new count. expiresAt is a unix time after which the counter
// may be discarded.
type Counter interface {
	Increment(ctx context.Context, clientID string, windowID int64, expiresAt int64) (int64, error)
}

// Decision is the outcome of one hit
type Decision struct {
	Allowed    bool
	RetryAfter int
	Count      int64
	Limit      int
}

type Limiter struct {
	counter Counter
	now     func() time.Time
	logger  *zap.Logger
}

func NewLimiter(counter Counter, logger *zap.Logger) *Limiter {
	return &Limiter{counter: counter, now: time.Now, logger: logger}
}

// WithClock replaces the time source
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Hit counts one request for clientID against limit. Windows are aligned to
// the minute, so a client can spend up to twice the limit across a window
// boundary. A counter failure is returned as a STORAGE_TRANSIENT error and
// callers decide whether to fail open.
func (l *Limiter) Hit(ctx context.Context, clientID string, limit int, ttl time.Duration) (Decision, error) {
	now := l.now().Unix()
	windowID := now / WindowSeconds
	retryAfter := WindowSeconds - int(now%WindowSeconds)

	count, err := l.counter.Increment(ctx, clientID, windowID, now+int64(ttl/time.Second))
	if err != nil {
		return Decision{Allowed: true, RetryAfter: retryAfter, Limit: limit}, apperrors.NewStorageTransientError(err)
	}

	decision := Decision{
		Allowed:    count <= int64(limit),
		RetryAfter: retryAfter,
		Count:      count,
		Limit:      limit,
	}
	if !decision.Allowed {
		l.logger.Info("Rate limit exceeded",
			zap.String("client_id", clientID),
			zap.Int64("count", count),
			zap.Int("limit", limit),
			zap.Int("retry_after", retryAfter),
		)
	}
	return decision, nil
}
