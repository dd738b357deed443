package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.True(t, cfg.RequireSessionToken)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.LivenessWindow)
	assert.Equal(t, 5*time.Minute, cfg.ServerRetention)
	assert.Equal(t, StorageMemory, cfg.StorageType)
	assert.Equal(t, "titanfall-2", cfg.OracleProductMarker)
	assert.Equal(t, 56306, cfg.PdataSize)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NSMS_REQUIRE_SESSION_TOKEN", "false")
	t.Setenv("NSMS_LIVENESS_WINDOW", "45s")
	t.Setenv("NSMS_STORAGE_TYPE", "redis")
	t.Setenv("NSMS_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("NSMS_ORACLE_RATE", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.RequireSessionToken)
	assert.Equal(t, 45*time.Second, cfg.LivenessWindow)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.InDelta(t, 2.5, cfg.OracleRate, 0.0001)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("NSMS_TOKEN_TTL", "forever")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"redis without url", map[string]string{"NSMS_STORAGE_TYPE": "redis"}, "NSMS_REDIS_URL"},
		{"sqlite without dsn", map[string]string{"NSMS_STORAGE_TYPE": "sqlite"}, "NSMS_DATABASE_DSN"},
		{"unknown storage", map[string]string{"NSMS_STORAGE_TYPE": "etcd"}, "unknown NSMS_STORAGE_TYPE"},
		{"zero window", map[string]string{"NSMS_LIVENESS_WINDOW": "0s"}, "NSMS_LIVENESS_WINDOW"},
		{"zero remote timeout", map[string]string{"NSMS_REMOTE_AUTH_TIMEOUT": "0s"}, "NSMS_REMOTE_AUTH_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBaseline(t *testing.T) {
	cfg := Config{}
	data, err := cfg.Baseline()
	require.NoError(t, err)
	assert.Nil(t, data)

	path := filepath.Join(t.TempDir(), "baseline.pdata")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))
	cfg.PdataBaselinePath = path
	data, err = cfg.Baseline()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	cfg.PdataBaselinePath = filepath.Join(t.TempDir(), "missing")
	_, err = cfg.Baseline()
	assert.Error(t, err)
}
