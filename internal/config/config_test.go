package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRANSACTION_STRATEGY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Empty(t, cfg.TransactionStrategy, "there is no default strategy")
	assert.Equal(t, "Read Committed", cfg.IsolationLevel)
	assert.Equal(t, 60*time.Second, cfg.BalanceCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.RecentTransfersTTL)
	assert.Equal(t, 60*time.Second, cfg.TransferLockTTL)
	assert.Equal(t, SinkRedis, cfg.LogSink)
	assert.Equal(t, "transaction-logs", cfg.TransferLogTopic)
	assert.Equal(t, 1024, cfg.LogQueueSize)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TRANSACTION_STRATEGY", "OPTIMISTIC")
	t.Setenv("ISOLATION_LEVEL", "Serializable")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_SINK", "kafka")
	t.Setenv("TRANSFER_LOCK_TTL", "5s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "OPTIMISTIC", cfg.TransactionStrategy)
	assert.Equal(t, "Serializable", cfg.IsolationLevel)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, SinkKafka, cfg.LogSink)
	assert.Equal(t, 5*time.Second, cfg.TransferLockTTL)
}

func TestLoad_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("TRANSACTION_STRATEGY=ATOMIC\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("TRANSACTION_STRATEGY", "PESSIMISTIC")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "PESSIMISTIC", cfg.TransactionStrategy)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"sink", "LOG_SINK", "carrier-pigeon"},
		{"queue size", "LOG_QUEUE_SIZE", "0"},
		{"ttl", "BALANCE_CACHE_TTL", "0s"},
		{"unparsable duration", "TRANSFER_LOCK_TTL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
