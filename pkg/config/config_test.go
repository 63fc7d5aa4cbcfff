package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Geocoder.Timeout)
	assert.Equal(t, 30*24*time.Hour, cfg.Geocoder.CacheTTL)
	assert.Equal(t, "database", cfg.Geocoder.CacheBackend)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
geocoder:
  api_key: secret
  cache_ttl: 24h
  cache_backend: redis
database:
  driver: mysql
  host: db
  port: 3306
  username: app
  password: pw
  database: foodcart
kafka:
  brokers: ["kafka:9092"]
`))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Geocoder.APIKey)
	assert.Equal(t, 24*time.Hour, cfg.Geocoder.CacheTTL)
	assert.Equal(t, "redis", cfg.Geocoder.CacheBackend)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "app:pw@tcp(db:3306)/foodcart?charset=utf8mb4&parseTime=True&loc=Local", cfg.Database.DSN())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
