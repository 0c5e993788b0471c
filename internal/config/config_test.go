package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drfirst/go-healthassist/internal/lookup"
)

var allKeys = []string{
	"PORT", "ENVIRONMENT", "LOG_LEVEL", "DATABASE_URL", "TABLE_SOURCE", "DATA_DIR", "LEXICON_PATH",
	"CACHE_BACKEND", "CACHE_TTL", "LOOKUP_TIMEOUT", "USE_LIVE_RXNORM", "RXNAV_BASE_URL", "OPENFDA_URL",
	"HF_TOKEN", "HF_ZS_URL", "KAFKA_BROKERS", "ENABLE_TRACING", "OTLP_ENDPOINT", "RUN_MIGRATIONS",
	"WARMER_WORKERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, TableSourceCSV, cfg.TableSource)
	assert.Equal(t, CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 25*time.Second, cfg.LookupTimeout)
	assert.True(t, cfg.UseLiveRxNorm)
	assert.True(t, cfg.RunMigrations)
	assert.False(t, cfg.EnableTracing)
	assert.Equal(t, lookup.DefaultRxNavBaseURL, cfg.RxNavBaseURL)
	assert.Equal(t, 8, cfg.WarmerWorkers)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.UsesDatabase())
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://localhost/assist")
	t.Setenv("TABLE_SOURCE", "postgres")
	t.Setenv("CACHE_BACKEND", "postgres")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("USE_LIVE_RXNORM", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.UseLiveRxNorm)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.UsesDatabase())
}

func TestPostgresOptionsNeedDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("TABLE_SOURCE", "postgres")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "DATABASE_URL is required when TABLE_SOURCE=postgres")

	clearEnv(t)
	t.Setenv("CACHE_BACKEND", "postgres")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "CACHE_BACKEND=postgres")
}

func TestInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TTL", "soon")
	t.Setenv("ENABLE_TRACING", "maybe")
	_, err := FromEnv()
	require.Error(t, err)
	assert.ErrorContains(t, err, "CACHE_TTL")
	assert.ErrorContains(t, err, "ENABLE_TRACING")

	clearEnv(t)
	t.Setenv("TABLE_SOURCE", "sqlite")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "TABLE_SOURCE")

	clearEnv(t)
	t.Setenv("WARMER_WORKERS", "0")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "WARMER_WORKERS")
}
