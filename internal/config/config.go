package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwtSecret"`
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
	MaxAttempts   int           `mapstructure:"maxAttempts"`
	AttemptWindow time.Duration `mapstructure:"attemptWindow"`
}

type RedisConfig struct {
	// URL enables the cross-instance bridge; empty means in-process only.
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from an optional yaml file and environment
// variables with the REVIVATECH_ prefix.
func Load(logger *slog.Logger, fileName string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("auth.jwtSecret", "default-secret-key-change-me")
	v.SetDefault("auth.issuer", "revivatech")
	v.SetDefault("auth.audience", "revivatech-clients")
	v.SetDefault("auth.maxAttempts", 5)
	v.SetDefault("auth.attemptWindow", "1m")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "revivatech:events")
	v.SetDefault("log.level", "info")

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REVIVATECH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		logger.Warn("config file not found, relying on defaults and env vars")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
