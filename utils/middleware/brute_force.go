package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/gofiber/fiber/v2"
)

// AttemptStore is the subset of cache.RedisCache used to track sign-in
// failures
type AttemptStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// BruteForceProtection locks out an IP after repeated failed sign-ins
type BruteForceProtection struct {
	store AttemptStore
	log   *logger.Logger
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(store AttemptStore, log *logger.Logger) *BruteForceProtection {
	return &BruteForceProtection{
		store: store,
		log:   log,
	}
}

func attemptKey(ip string) string { return fmt.Sprintf("brute_force:attempts:%s", ip) }
func lockKey(ip string) string    { return fmt.Sprintf("brute_force:lock:%s", ip) }

// CheckAndRecordAttempt middleware checks if IP is locked out
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := lockKey(c.IP())

		locked, err := b.store.Exists(c.Context(), key)
		if err != nil {
			// A cache outage must not lock everybody out
			b.log.Warn("brute force check failed", "error", err)
			return c.Next()
		}

		if locked {
			ttl, _ := b.store.TTL(c.Context(), key)
			retryAfter := int(ttl.Seconds())
			if retryAfter <= 0 {
				retryAfter = 60
			}

			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return response.TooManyRequests(c, fmt.Sprintf("Trop de tentatives. Réessayez dans %d secondes", retryAfter))
		}

		return c.Next()
	}
}

// RecordFailedAttempt records a failed sign-in and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(c *fiber.Ctx, ip string) {
	ctx := c.Context()

	attempts, err := b.store.Increment(ctx, attemptKey(ip))
	if err != nil {
		b.log.Warn("failed to record sign-in attempt", "error", err)
		return
	}

	// 15 minute window
	if attempts == 1 {
		_ = b.store.Expire(ctx, attemptKey(ip), 15*time.Minute)
	}

	var lockDuration time.Duration
	switch {
	case attempts >= 25:
		lockDuration = 24 * time.Hour
	case attempts >= 10:
		lockDuration = 1 * time.Hour
	case attempts >= 5:
		lockDuration = 2 * time.Minute
	default:
		return
	}

	if err := b.store.Set(ctx, lockKey(ip), "locked", lockDuration); err != nil {
		b.log.Warn("failed to lock IP", "error", err)
		return
	}
	b.log.Warn("sign-in locked for IP", "ip", ip, "attempts", attempts, "duration", lockDuration.String())
}

// RecordSuccessfulAttempt clears failed attempts on successful sign-in
func (b *BruteForceProtection) RecordSuccessfulAttempt(c *fiber.Ctx, ip string) {
	_ = b.store.Delete(c.Context(), attemptKey(ip), lockKey(ip))
}
