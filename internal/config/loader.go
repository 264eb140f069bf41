package config

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/keygate/pkg/constants"
	"github.com/turtacn/keygate/pkg/errors"
	"github.com/turtacn/keygate/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
// Environment variables use the KEYGATE prefix with underscores, e.g.
// KEYGATE_DATABASE_HOST overrides database.host.
func LoadConfig(path string, log logger.Logger) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("/etc/keygate/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix("KEYGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrInvalidRequest.WithError(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Hot-reload the log level on config file edits; everything else
	// requires a restart.
	if v.ConfigFileUsed() != "" {
		watchLogLevel(v, log)
	}

	return &cfg, nil
}

func watchLogLevel(v *viper.Viper, log logger.Logger) {
	v.OnConfigChange(func(e fsnotify.Event) {
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			log.Warn(context.Background(), "ignoring config change, unmarshal failed", logger.Error(err))
			return
		}
		log.SetLevel(constants.ParseLogLevel(next.Log.Level))
		log.Info(context.Background(), "log level reloaded", logger.String("level", next.Log.Level))
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.shutdown_timeout", 10)
	v.SetDefault("server.enable_pprof", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "keygate")
	v.SetDefault("database.database", "keygate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 1800)
	v.SetDefault("database.conn_timeout", 10)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("cache.ttl", 300)
	v.SetDefault("cache.local_ttl", 30)

	v.SetDefault("kafka.topic", "keygate.audit")

	v.SetDefault("auth.issuer", "keygate")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "keygate")
	v.SetDefault("tracing.sample_ratio", 1.0)
}
