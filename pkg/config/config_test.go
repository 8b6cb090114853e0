package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("STORE_DRIVER", StoreDriverPostgres)
	t.Setenv("GEMINI_TIMEOUT", "120s")
	t.Setenv("GEMINI_TEMPERATURE", "0.3")
	t.Setenv("GEMINI_MAX_OUTPUT_TOKENS", "2048")
	t.Setenv("PORT", "8080")
	t.Setenv("HOST", "0.0.0.0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, 120*time.Second, cfg.Gemini.Timeout)
	assert.InDelta(t, 0.3, cfg.Gemini.Temperature, 1e-9)
	assert.Equal(t, 2048, cfg.Gemini.MaxOutputTokens)
	assert.Contains(t, cfg.Gemini.APIURL, ":generateContent")
	assert.Contains(t, cfg.Gemini.StreamURL, ":streamGenerateContent?alt=sse")
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_TIMEOUT", "5s")
	t.Setenv("STORE_DRIVER", StoreDriverMongo)
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_CACHE_TTL", "15m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6380", cfg.GetRedisAddr())
	assert.Equal(t, 15*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:  StoreConfig{Driver: StoreDriverPostgres},
			Gemini: GeminiConfig{APIKey: "k", Timeout: time.Second},
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Gemini.Timeout = 0
	assert.ErrorContains(t, cfg.Validate(), "GEMINI_TIMEOUT")

	cfg = valid()
	cfg.Store.Driver = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "STORE_DRIVER")
}

func TestHelpers(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Environment: "production"},
		Database: DatabaseConfig{
			Host: "db", Port: "5432", User: "u", Password: "p", Name: "digest", SSLMode: "disable",
		},
	}

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=digest sslmode=disable", cfg.GetDatabaseDSN())
}
