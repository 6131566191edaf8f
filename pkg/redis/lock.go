package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld another holder owns the key
var ErrLockHeld = errors.New("lock already held")

// releaseScript deletes the key only if it still carries our token
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Locker mutual exclusion across processes (SET NX PX)
// ⭐ SSOT: 실행 직렬화 락은 여기서만
// Redis 비활성화 시 프로세스 내 맵으로 대체
type Locker struct {
	client *Client
	prefix string

	mu    sync.Mutex
	local map[string]string
}

// Lock a held lock; Release is safe to call more than once
type Lock struct {
	locker *Locker
	key    string
	token  string
	once   sync.Once
}

// NewLocker creates a new locker
func NewLocker(client *Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
		local:  make(map[string]string),
	}
}

// Acquire takes key for ttl or returns ErrLockHeld
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	fullKey := fmt.Sprintf("%s:lock:%s", l.prefix, key)
	token := uuid.NewString()

	if !l.client.Enabled() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, held := l.local[fullKey]; held {
			return nil, ErrLockHeld
		}
		l.local[fullKey] = token
		return &Lock{locker: l, key: fullKey, token: token}, nil
	}

	ok, err := l.client.Redis().SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{locker: l, key: fullKey, token: token}, nil
}

// Release gives the lock back if we still own it
func (lk *Lock) Release(ctx context.Context) error {
	var err error
	lk.once.Do(func() {
		l := lk.locker
		if !l.client.Enabled() {
			l.mu.Lock()
			if l.local[lk.key] == lk.token {
				delete(l.local, lk.key)
			}
			l.mu.Unlock()
			return
		}
		if e := releaseScript.Run(ctx, l.client.Redis(), []string{lk.key}, lk.token).Err(); e != nil {
			err = fmt.Errorf("release lock %s: %w", lk.key, e)
		}
	})
	return err
}
