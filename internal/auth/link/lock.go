package link

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes sign-ins per external subject. Lock blocks until the
// subject lease is held or ctx ends; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, subject string) (func(), error)
}

// LockClient is the slice of the redis client the locker needs.
// *redis.Client satisfies it.
type LockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

const (
	lockPrefix = "signin-lock:"
	lockTTL    = 5 * time.Second
	lockRetry  = 50 * time.Millisecond
)

// releaseLock deletes the lease only while we still hold it. A holder that
// outlived its TTL must not delete the next holder's lease.
var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker holds a short SETNX lease per subject id. The TTL bounds how
// long a crashed holder can block the subject. Each lease carries a unique
// token so release is a compare-and-delete, never a blind DEL.
type RedisLocker struct {
	client LockClient
}

func NewRedisLocker(client LockClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Lock(ctx context.Context, subject string) (func(), error) {
	if subject == "" {
		return func() {}, nil
	}
	key := lockPrefix + subject
	token := uuid.NewString()

	deadline := time.Now().Add(lockTTL)
	for time.Now().Before(deadline) {
		ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Release outlives the request context on purpose.
				releaseLock.Run(context.Background(), l.client, []string{key}, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
	return nil, errors.New("link: subject lock busy")
}
