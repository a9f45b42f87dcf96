package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Crypto  CryptoConfig  `mapstructure:"crypto"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Updates UpdatesConfig `mapstructure:"updates"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

type CryptoConfig struct {
	// Key is the hex-encoded 256-bit credential encryption key
	// (APP_ENC_KEY). Leaving it unset disables credential storage but not
	// the relay itself.
	Key string `mapstructure:"key"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type UpdatesConfig struct {
	CheckEnabled bool `mapstructure:"check_enabled"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.env", "development")
	v.SetDefault("store.dsn", "file:relay.db?_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("updates.check_enabled", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// APP_ENC_KEY is the historical name for the credential key; keep it as
	// the primary alias.
	_ = v.BindEnv("crypto.key", "APP_ENC_KEY", "CRYPTO_KEY")
	_ = v.BindEnv("server.port", "PORT", "SERVER_PORT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Redacted returns a copy safe to expose over the config endpoint.
func (c *Config) Redacted() Config {
	out := *c
	if out.Crypto.Key != "" {
		out.Crypto.Key = "[set]"
	}
	if out.Redis.Password != "" {
		out.Redis.Password = "[set]"
	}
	return out
}
