package store

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoomLockerSerializesSameRoom(t *testing.T) {
	l := NewLocalRoomLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "101")
	require.NoError(t, err)

	// another room is independent
	other, err := l.Lock(ctx, "102")
	require.NoError(t, err)
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "101")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	again, err := l.Lock(ctx, "101")
	require.NoError(t, err)
	again()
}

func TestLocalRoomLockerMutualExclusion(t *testing.T) {
	l := NewLocalRoomLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "G2")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func newTestRedisLocker(t *testing.T) (*RedisRoomLocker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisRoomLocker(client, 5*time.Second), mr
}

func TestRedisRoomLocker(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "301")
	require.NoError(t, err)
	assert.True(t, mr.Exists("coliving:room-lock:301"))

	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "301")
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	unlock()
	assert.False(t, mr.Exists("coliving:room-lock:301"))

	again, err := l.Lock(ctx, "301")
	require.NoError(t, err)
	again()
}

func TestRedisRoomLockerKeepsForeignLock(t *testing.T) {
	l, mr := newTestRedisLocker(t)

	unlock, err := l.Lock(context.Background(), "302")
	require.NoError(t, err)

	// the lock expired and someone else took it
	require.NoError(t, mr.Set("coliving:room-lock:302", "someone-else"))
	unlock()

	got, err := mr.Get("coliving:room-lock:302")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisRoomLockerExpires(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()

	_, err := l.Lock(ctx, "303")
	require.NoError(t, err)
	mr.FastForward(6 * time.Second)

	unlock, err := l.Lock(ctx, "303")
	require.NoError(t, err)
	unlock()
}
