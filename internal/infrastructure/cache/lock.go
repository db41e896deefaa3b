package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultLockPrefix = "stock:lock:"

// Locker grants exclusive, expiring locks on a key. The returned function
// releases the lock. A key already held yields a CodeConcurrencyConflict error.
type Locker interface {
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}

// RedisLocker holds locks in Redis so that only one instance runs a sweep or a closing
type RedisLocker struct {
	client *redislock.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLocker creates a Redis backed locker; locks expire after ttl if never released
func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = defaultLockPrefix
	}
	return &RedisLocker{
		client: redislock.New(client),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Lock obtains the lock without retrying
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, lockHeld(key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// expired before release; someone else may hold it now
			return nil
		}
		return err
	}, nil
}

// LocalLocker is the single instance fallback used when Redis is not configured
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker(ttl time.Duration) *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// Lock takes the key unless another caller holds an unexpired lock on it
func (l *LocalLocker) Lock(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.held[key]; ok && (l.ttl <= 0 || now.Before(until)) {
		return nil, lockHeld(key)
	}
	until := now.Add(l.ttl)
	l.held[key] = until

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key] == until {
			delete(l.held, key)
		}
		return nil
	}, nil
}

// NewLocker returns a Redis locker when a client is given and a local one otherwise
func NewLocker(client *redis.Client, ttl time.Duration) Locker {
	if client == nil {
		return NewLocalLocker(ttl)
	}
	return NewRedisLocker(client, "", ttl)
}

func lockHeld(key string) error {
	return shared.NewDomainError(shared.CodeConcurrencyConflict,
		fmt.Sprintf("%s is already running on another instance", key))
}
