package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mhestore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: https://api.example.com
compare_max: 3
request_timeout: 5s
store_driver: redis
redis_addr: localhost:6379
`), 0o600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFile(path, true))
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, 3, cfg.CompareMax)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "redis", cfg.StoreDriver)
	assert.Equal(t, "INR", cfg.Currency, "unset keys keep defaults")
	assert.NoError(t, cfg.Validate())

	t.Run("missing optional file", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.NoError(t, cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), false))
		assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), true))
	})

	t.Run("malformed file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("compare_max: [1"), 0o600))
		assert.Error(t, DefaultConfig().LoadFile(bad, true))
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MHESTORE_API_URL", "https://api.example.com")
	t.Setenv("MHESTORE_TOKEN", "tok")
	t.Setenv("MHESTORE_USER_ID", "42")
	t.Setenv("MHESTORE_CURRENCY", "usd")
	t.Setenv("MHESTORE_READ_RETRIES", "0")
	t.Setenv("MHESTORE_TIMEOUT", "2s")
	t.Setenv("MHESTORE_MAX_CONCURRENT", "not-a-number")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "tok", cfg.AccessToken)
	assert.Equal(t, int64(42), cfg.UserID)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 0, cfg.ReadRetries)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.MaxConcurrent, "unparsable values are ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative api url", func(c *Config) { c.APIBaseURL = "/api" }},
		{"ftp site url", func(c *Config) { c.SiteURL = "ftp://example.com" }},
		{"unknown store", func(c *Config) { c.StoreDriver = "etcd" }},
		{"redis without addr", func(c *Config) { c.StoreDriver = "redis" }},
		{"zero compare max", func(c *Config) { c.CompareMax = 0 }},
		{"zero rate", func(c *Config) { c.RatePerSecond = 0 }},
		{"negative retries", func(c *Config) { c.ReadRetries = -1 }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
