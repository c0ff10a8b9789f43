package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RoomLocker serializes writes that target the same room
type RoomLocker interface {
	// Lock blocks until the room is held or ctx is done. The returned
	// function releases the room and is safe to call once.
	Lock(ctx context.Context, room string) (func(), error)
}

// LocalRoomLocker is a keyed in-process mutex. It only serializes writers
// within one process.
type LocalRoomLocker struct {
	mu    sync.Mutex
	rooms map[string]chan struct{}
}

// NewLocalRoomLocker creates an in-process room locker
func NewLocalRoomLocker() *LocalRoomLocker {
	return &LocalRoomLocker{rooms: make(map[string]chan struct{})}
}

func (l *LocalRoomLocker) slot(room string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.rooms[room]
	if !ok {
		ch = make(chan struct{}, 1)
		l.rooms[room] = ch
	}
	return ch
}

func (l *LocalRoomLocker) Lock(ctx context.Context, room string) (func(), error) {
	ch := l.slot(room)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// releaseScript deletes the lock only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ErrLockNotAcquired is returned when the room stayed locked until ctx ended
var ErrLockNotAcquired = errors.New("room lock not acquired")

// RedisRoomLocker holds room locks in Redis so several replicas of the
// members service serialize on the same room
type RedisRoomLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisRoomLocker creates a locker whose locks expire after ttl
func NewRedisRoomLocker(client *redis.Client, ttl time.Duration) *RedisRoomLocker {
	return &RedisRoomLocker{
		client: client,
		prefix: "coliving:room-lock:",
		ttl:    ttl,
		retry:  25 * time.Millisecond,
	}
}

func (l *RedisRoomLocker) key(room string) string {
	return l.prefix + room
}

func (l *RedisRoomLocker) Lock(ctx context.Context, room string) (func(), error) {
	key := l.key(room)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire lock for room %s: %w", room, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					releaseScript.Run(releaseCtx, l.client, []string{key}, token)
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}
