package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle rate-limits login attempts per username and source address
// using a fixed redis window. It fails open: if redis is unreachable the
// attempt is allowed and the error is logged.
type Throttle struct {
	client   *redis.Client
	logger   *slog.Logger
	limit    int64
	window   time.Duration
}

// NewThrottle builds Throttle instance.
func NewThrottle(client *redis.Client, logger *slog.Logger, limit int64, window time.Duration) *Throttle {
	return &Throttle{client: client, logger: logger, limit: limit, window: window}
}

func throttleKey(username, ip string) string {
	return fmt.Sprintf("login:%s:%s", username, ip)
}

// Allow records one attempt and reports whether it is within the window
// budget.
func (t *Throttle) Allow(ctx context.Context, username, ip string) bool {
	if t == nil || t.client == nil {
		return true
	}
	key := throttleKey(username, ip)

	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		t.logger.Warn("login throttle unavailable", slog.Any("error", err))
		return true
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			t.logger.Warn("login throttle expire", slog.Any("error", err))
		}
	}
	return count <= t.limit
}

// Reset clears the attempt counter after a successful login.
func (t *Throttle) Reset(ctx context.Context, username, ip string) {
	if t == nil || t.client == nil {
		return
	}
	if err := t.client.Del(ctx, throttleKey(username, ip)).Err(); err != nil {
		t.logger.Warn("login throttle reset", slog.Any("error", err))
	}
}
