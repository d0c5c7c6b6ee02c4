package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisConfig_Defaults(t *testing.T) {
	opts := RedisConfig{Addr: "localhost:6379"}.options()

	assert.Equal(t, defaultRedisPoolSize, opts.PoolSize)
	assert.Equal(t, defaultRedisDialTimeout, opts.DialTimeout)
	assert.Equal(t, defaultRedisReadTimeout, opts.ReadTimeout)
	assert.Equal(t, defaultRedisWriteTimeout, opts.WriteTimeout)

	opts = RedisConfig{Addr: "localhost:6379", PoolSize: 9, ReadTimeout: time.Second}.options()
	assert.Equal(t, 9, opts.PoolSize)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr(), DB: 0})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{})
	assert.ErrorContains(t, err, "empty address")

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient(context.Background(), RedisConfig{Addr: addr, DialTimeout: 200 * time.Millisecond})
	assert.ErrorContains(t, err, "ping redis at "+addr)
}
