// Package lock provides a Redis-backed distributed lock guarding
// concurrent sale/refund attempts on the same logical operation from
// both reaching the payment gateway before either's DB transaction
// commits. This is advisory concurrency control on top of, not a
// replacement for, the DB isolation levels workflows already run at.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/marwanAmeen/beeline-server/internal/core/ports"
)

var (
	ErrLockFailed = errors.New("failed to acquire distributed lock")
)

// Lock is a single-key SETNX lock with a Lua-scripted, value-checked
// unlock so a holder whose TTL has already expired can never delete a
// different holder's lock.
type Lock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

// New constructs a Lock over key, held under value for expiration.
func New(client *redis.Client, key, value string, expiration time.Duration) *Lock {
	return &Lock{client: client, key: key, value: value, expiration: expiration}
}

// TryLock attempts to acquire the lock without blocking.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Lock blocks, retrying every retryInterval, until the lock is acquired,
// maxRetries is exhausted, or ctx is cancelled.
func (l *Lock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Unlock releases the lock, only if it is still held by this value.
func (l *Lock) Unlock(ctx context.Context) error {
	if err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Err(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.key, err)
	}
	return nil
}

// BookingKey returns the lock key for a (userID, tripID) sale attempt.
func BookingKey(userID, tripID string) string {
	return fmt.Sprintf("ledger:lock:booking:%s:%s", userID, tripID)
}

// RoutePassPurchaseKey returns the lock key for a (userID, tag) route-pass
// purchase attempt.
func RoutePassPurchaseKey(userID, tag string) string {
	return fmt.Sprintf("ledger:lock:routepass-purchase:%s:%s", userID, tag)
}

// TicketRefundKey returns the lock key for a ticket refund attempt.
func TicketRefundKey(ticketID string) string {
	return fmt.Sprintf("ledger:lock:refund:ticket:%s", ticketID)
}

// RoutePassRefundKey returns the lock key for a route-pass refund attempt.
func RoutePassRefundKey(routePassID string) string {
	return fmt.Sprintf("ledger:lock:refund:routepass:%s", routePassID)
}

// NewClient constructs the shared redis.Client from an address, matching
// the single-pool-for-the-process convention used for the DB side.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// retryInterval and maxRetries bound how long RedisLocker waits to acquire
// a lock before giving up.
const (
	retryInterval = 100 * time.Millisecond
	maxRetries    = 20
)

// RedisLocker adapts Lock to ports.Locker: one redis-backed Lock per key,
// held under a fresh value so a retry never mistakes a prior attempt's
// lock for its own.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

var _ ports.Locker = (*RedisLocker)(nil)

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	l := New(r.client, key, uuid.NewString(), r.ttl)
	if err := l.Lock(ctx, retryInterval, maxRetries); err != nil {
		return nil, err
	}
	return l.Unlock, nil
}

// IdempotencyCache records "idempotency key -> outcome" so a caller retry
// within ttl short-circuits without re-invoking the gateway, on top of the
// gateway's own server-side idempotency guarantee. CachingGateway checks it
// once per Charge/Refund call, before invoking the inner gateway, and
// records the outcome after a successful call; the check is against this
// cache instead of a DB row, since no order table of its own exists in
// this engine.
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyCache(client *redis.Client, ttl time.Duration) *IdempotencyCache {
	return &IdempotencyCache{client: client, ttl: ttl}
}

func idempotencyCacheKey(idempotencyKey string) string {
	return fmt.Sprintf("ledger:idempotency:%s", idempotencyKey)
}

// Outcome looks up a previously recorded result for idempotencyKey. found
// is false on a cache miss, not an error.
func (c *IdempotencyCache) Outcome(ctx context.Context, idempotencyKey string) (outcome string, found bool, err error) {
	val, err := c.client.Get(ctx, idempotencyCacheKey(idempotencyKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading idempotency cache for %s: %w", idempotencyKey, err)
	}
	return val, true, nil
}

// Record stores outcome under idempotencyKey for ttl.
func (c *IdempotencyCache) Record(ctx context.Context, idempotencyKey, outcome string) error {
	if err := c.client.Set(ctx, idempotencyCacheKey(idempotencyKey), outcome, c.ttl).Err(); err != nil {
		return fmt.Errorf("recording idempotency cache for %s: %w", idempotencyKey, err)
	}
	return nil
}
