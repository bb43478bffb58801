package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.NotEmpty(t, cfg.Database.URI)
	assert.NotEmpty(t, cfg.Redis.URI)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "motorev.emergency", cfg.Kafka.EmergencyTopic)
	assert.NotEmpty(t, cfg.JWT.Secret)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MOTOREV_PORT", "9999")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, splitBrokers("a:1,b:2"))
	assert.Equal(t, []string{"a:1"}, splitBrokers(" a:1 , "))
	assert.Empty(t, splitBrokers(""))
}
