package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 5 * time.Minute

// ErrLockLost means the lock expired and may have passed to another replica
// before the holder released it.
var ErrLockLost = errors.New("cron lock expired before release")

// Lock coordinates exclusive cron cycles across worker replicas.
type Lock interface {
	// TryLock returns a release func when the lock was taken and nil when
	// another replica holds it.
	TryLock(ctx context.Context) (release func(context.Context) error, err error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a SET NX lock with a random owner token. The TTL bounds how
// long a crashed worker can block the others.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("lock store is required")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) TryLock(ctx context.Context) (func(context.Context) error, error) {
	owner := uuid.NewString()
	taken, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("take lock %s: %w", l.key, err)
	}
	if !taken {
		return nil, nil
	}
	return func(ctx context.Context) error {
		released, err := l.store.DeleteIfValue(ctx, l.key, owner)
		if err != nil {
			return fmt.Errorf("release lock %s: %w", l.key, err)
		}
		if !released {
			return ErrLockLost
		}
		return nil
	}, nil
}
