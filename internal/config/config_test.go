package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.False(t, cfg.Redis.Enabled)
	assert.Empty(t, cfg.Crypto.Key)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("PORT", "8091")
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("APP_ENC_KEY", "aa")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8091", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "aa", cfg.Crypto.Key)
	assert.True(t, cfg.Redis.Enabled)
}

func TestConfig_Redacted(t *testing.T) {
	cfg := &Config{}
	cfg.Crypto.Key = "deadbeef"
	cfg.Redis.Password = "hunter2"

	red := cfg.Redacted()
	assert.Equal(t, "[set]", red.Crypto.Key)
	assert.Equal(t, "[set]", red.Redis.Password)
	// The original is untouched.
	assert.Equal(t, "deadbeef", cfg.Crypto.Key)
}
