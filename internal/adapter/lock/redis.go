package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/srgjo27/puja_booking/internal/core/domain"
)

// Deletes the key only while it still holds our token, so an expired lock taken over by another
// instance is never released by us.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type RedisOptions struct {
	TTL          time.Duration
	Wait         time.Duration
	PollInterval time.Duration
}

// RedisLocker serializes writers of a booking across service instances with SET NX PX.
type RedisLocker struct {
	client redis.Cmdable
	opts   RedisOptions
	log    *zap.Logger
	token  func() string
}

func NewRedisLocker(client redis.Cmdable, opts RedisOptions, log *zap.Logger) *RedisLocker {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Wait <= 0 {
		opts.Wait = 2 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 25 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{client: client, opts: opts, log: log, token: uuid.NewString}
}

func lockKey(bookingID uuid.UUID) string {
	return fmt.Sprintf("booking:lock:%s", bookingID)
}

// Lock waits up to the configured wait for the booking lock and fails with domain.ErrBookingBusy
// when it stays held.
func (l *RedisLocker) Lock(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	key := lockKey(bookingID)
	token := l.token()
	deadline := time.Now().Add(l.opts.Wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire booking lock: %w", err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		if time.Now().Add(l.opts.PollInterval).After(deadline) {
			return nil, domain.ErrBookingBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.opts.PollInterval):
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		l.log.Warn("failed to release booking lock", zap.String("key", key), zap.Error(err))
	}
}
