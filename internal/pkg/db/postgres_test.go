package db

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-storefront/internal/config"
)

func TestNewPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:              "db.internal",
		Port:              5433,
		User:              "shop",
		Password:          "secret",
		Name:              "storefront",
		PoolSize:          12,
		MinConns:          3,
		ConnectTimeout:    4 * time.Second,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   10 * time.Minute,
		HealthCheckPeriod: 15 * time.Second,
	}

	poolConfig, err := newPoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", poolConfig.ConnConfig.Host)
	assert.Equal(t, uint16(5433), poolConfig.ConnConfig.Port)
	assert.Equal(t, "storefront", poolConfig.ConnConfig.Database)
	assert.Equal(t, int32(12), poolConfig.MaxConns)
	assert.Equal(t, int32(3), poolConfig.MinConns)
	assert.Equal(t, 4*time.Second, poolConfig.ConnConfig.ConnectTimeout)
	assert.Equal(t, time.Hour, poolConfig.MaxConnLifetime)
	assert.Equal(t, 10*time.Minute, poolConfig.MaxConnIdleTime)
	assert.Equal(t, 15*time.Second, poolConfig.HealthCheckPeriod)
	assert.NotNil(t, poolConfig.AfterConnect)
	assert.Nil(t, poolConfig.ConnConfig.Tracer)
}

func TestNewPoolConfig_URLAndQueryLog(t *testing.T) {
	poolConfig, err := newPoolConfig(&config.DatabaseConfig{
		URL:      "postgres://u:p@pg.example:6543/shop?sslmode=disable",
		PoolSize: 4,
		LogLevel: "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "pg.example", poolConfig.ConnConfig.Host)
	assert.Equal(t, uint16(6543), poolConfig.ConnConfig.Port)

	tracer, ok := poolConfig.ConnConfig.Tracer.(*tracelog.TraceLog)
	require.True(t, ok)
	assert.Equal(t, tracelog.LogLevelDebug, tracer.LogLevel)
}

func TestNewPoolConfig_Rejects(t *testing.T) {
	_, err := newPoolConfig(&config.DatabaseConfig{Host: "db", Port: 5432, PoolSize: 2, MinConns: 5})
	assert.Error(t, err)

	_, err = newPoolConfig(&config.DatabaseConfig{Host: "db", Port: 5432, PoolSize: 2, LogLevel: "chatty"})
	assert.Error(t, err)
}
