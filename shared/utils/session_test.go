package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-coliving-admin/shared/config"
)

func TestTokenDenylist(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	d := NewTokenDenylist(client)
	ctx := context.Background()

	revoked, err := d.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "token-1", time.Now().Add(time.Hour)))
	revoked, err = d.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// expired tokens need no entry
	require.NoError(t, d.Revoke(ctx, "token-2", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(revokedPrefix+"token-2"))

	mr.FastForward(2 * time.Hour)
	revoked, err = d.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	cfg := &config.RedisConfig{Host: mr.Host(), Port: mr.Port()}
	client, err := NewRedisClient(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), cfg)
	assert.Error(t, err)
}
