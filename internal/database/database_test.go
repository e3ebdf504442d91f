package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-interview/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL: "postgres://interview:secret@db:5432/interview?sslmode=disable",
		MaxDBConns:  16,
	}

	pc, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(16), pc.MaxConns)
	assert.Equal(t, int32(4), pc.MinConns)
	assert.Equal(t, 5*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "db", pc.ConnConfig.Host)

	cfg.DatabaseURL = "postgres://db/interview?application_name=migrator&connect_timeout=2"
	pc, err = poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "migrator", pc.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, 2*time.Second, pc.ConnConfig.ConnectTimeout)

	cfg.DatabaseURL = "::not a url"
	_, err = poolConfig(cfg)
	assert.Error(t, err)
}

func TestRedisOptions(t *testing.T) {
	opt, err := redisOptions(&config.Config{RedisURL: "redis://cache:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, 32, opt.PoolSize)
	assert.Equal(t, applicationName, opt.ClientName)
	assert.Equal(t, 3*time.Second, opt.ReadTimeout)

	opt, err = redisOptions(&config.Config{RedisURL: "redis://cache:6379/0?pool_size=8&read_timeout=1s"})
	require.NoError(t, err)
	assert.Equal(t, 8, opt.PoolSize)
	assert.Equal(t, time.Second, opt.ReadTimeout)

	_, err = redisOptions(&config.Config{RedisURL: "http://cache"})
	assert.Error(t, err)
}

func TestWaitReadyRetriesUntilPingSucceeds(t *testing.T) {
	calls := 0
	err := waitReady(context.Background(), zerolog.Nop(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWaitReadyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := waitReady(ctx, zerolog.Nop(), func(context.Context) error {
		calls++
		return errors.New("connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
