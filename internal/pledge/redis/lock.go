package redis

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cmdable is the slice of the redis command surface the lock needs,
// satisfied by *redis.Client.
type Cmdable interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis holds a short-lived lock per order reference so two in-flight
// submissions of the same pledge cannot both reach the gateway. The DB
// unique constraint on order_ref remains the authoritative guard; this
// lock just fails the duplicate fast.
type Redis struct {
	Client Cmdable
}

func NewRedis(client Cmdable) *Redis {
	return &Redis{Client: client}
}

// getLockDuration returns the reference lock TTL, default 5 minutes. The
// TTL bounds how long a crashed workflow can block a retry.
func getLockDuration() time.Duration {
	defaultDuration := 5 * time.Minute

	lockTTLStr := os.Getenv("PLEDGE_LOCK_TTL_MINUTES")
	if lockTTLStr == "" {
		return defaultDuration
	}
	lockTTLMin, err := strconv.Atoi(lockTTLStr)
	if err != nil {
		return defaultDuration
	}
	return time.Duration(lockTTLMin) * time.Minute
}

// LockReference acquires the lock for ref on behalf of orderID. Returns
// false when another workflow invocation already holds it.
func (r *Redis) LockReference(ref, orderID string) (bool, error) {
	key := "pledge_ref_lock:" + ref
	return r.Client.SetNX(context.Background(), key, orderID, getLockDuration()).Result()
}

// UnlockReference releases the lock only if orderID still owns it.
func (r *Redis) UnlockReference(ref, orderID string) error {
	ctx := context.Background()
	key := "pledge_ref_lock:" + ref

	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == orderID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
