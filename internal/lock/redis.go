package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vbncursed/vkr/pass-service/internal/logger"
)

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker holds a SET NX PX lease per key so replicas sharing a bundle
// directory and database do not interleave writes for the same pass. The
// lease expires after TTL if its holder dies.
type RedisLocker struct {
	rdb    *redis.Client
	Prefix string
	TTL    time.Duration
	Retry  time.Duration
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, Prefix: "passlock", TTL: 30 * time.Second, Retry: 50 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("lock token: %w", err)
	}
	token := hex.EncodeToString(raw)
	rkey := l.Prefix + ":" + key

	for {
		ok, err := l.rdb.SetNX(ctx, rkey, token, l.TTL).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquire %s: %w", rkey, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() {
		// release must run even when the request context is already done
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{rkey}, token).Err(); err != nil {
			logger.GetLogger(ctx).WithError(err).WithField("lock", rkey).Warn("release lock failed")
		}
	}, nil
}
