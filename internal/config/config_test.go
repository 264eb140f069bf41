package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keygate/pkg/logger"
)

func TestLoadConfig_DefaultsAndEnvOverride(t *testing.T) {
	t.Setenv("KEYGATE_AUTH_JWT_SECRET", "test-secret")
	t.Setenv("KEYGATE_DATABASE_HOST", "db.internal")

	cfg, err := LoadConfig(t.TempDir(), logger.NewNoopLogger())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "keygate.audit", cfg.Kafka.Topic)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_MissingSecretRejected(t *testing.T) {
	_, err := LoadConfig(t.TempDir(), logger.NewNoopLogger())
	require.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "localhost", Port: 5432,
		User: "keygate", Password: "pw",
		Database: "keygate", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=keygate password=pw dbname=keygate sslmode=disable",
		cfg.DSN())
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Host: "localhost", Database: "keygate"},
			Auth:     AuthConfig{JWTSecret: "s"},
		}
	}

	require.NoError(t, base().Validate())

	bad := base()
	bad.Server.Port = 0
	assert.Error(t, bad.Validate())

	bad = base()
	bad.Kafka.Brokers = []string{"kafka:9092"}
	bad.Kafka.Topic = ""
	assert.Error(t, bad.Validate())
}
