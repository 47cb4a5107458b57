package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alchemorsel/client/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alchemorsel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	t.Setenv("ALCHEMORSEL_API_BASE_URL", "")
	t.Setenv("API_URL", "")
	path := writeConfig(t, `
api:
  base_url: https://api.example.com/v1
  rate_limit: 2
storage:
  driver: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", cfg.API.BaseURL)
	assert.Equal(t, 2.0, cfg.API.RateLimit)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, int64(10<<20), cfg.API.MaxResponseBytes)
	assert.Equal(t, "alchemorsel:", cfg.Storage.KeyPrefix)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("ALCHEMORSEL_API_BASE_URL", "http://localhost:3000")
	path := writeConfig(t, "api:\n  base_url: https://ignored.example.com\nstorage:\n  driver: memory\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
}

func TestLoad_LegacyAPIURL(t *testing.T) {
	t.Setenv("ALCHEMORSEL_API_BASE_URL", "")
	t.Setenv("API_URL", "http://legacy.local:3000")
	path := writeConfig(t, "storage:\n  driver: memory\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://legacy.local:3000", cfg.API.BaseURL)
}

func TestLoad_MissingBaseURLIsConfigurationError(t *testing.T) {
	t.Setenv("ALCHEMORSEL_API_BASE_URL", "")
	t.Setenv("API_URL", "")
	path := writeConfig(t, "storage:\n  driver: memory\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfiguration))
}

func TestAPIConfig_ValidateRejectsRelativeURL(t *testing.T) {
	for _, raw := range []string{"/api", "localhost:3000", "ftp://files.example.com"} {
		err := APIConfig{BaseURL: raw}.Validate()
		assert.True(t, apperrors.Is(err, apperrors.CodeConfiguration), raw)
	}
	assert.NoError(t, APIConfig{BaseURL: "https://api.example.com"}.Validate())
}

func TestValidate_StorageDrivers(t *testing.T) {
	base := Config{API: APIConfig{BaseURL: "http://localhost:3000"}}

	cases := []struct {
		name    string
		storage StorageConfig
		wantErr bool
	}{
		{"file with path", StorageConfig{Driver: StorageFile, Path: "/tmp/s.json"}, false},
		{"file without path", StorageConfig{Driver: StorageFile}, true},
		{"postgres without dsn", StorageConfig{Driver: StoragePostgres}, true},
		{"redis", StorageConfig{Driver: StorageRedis, RedisAddr: "localhost:6379"}, false},
		{"memory", StorageConfig{Driver: StorageMemory}, false},
		{"unknown", StorageConfig{Driver: "etcd"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.Storage = tc.storage
			err := cfg.Validate()
			if tc.wantErr {
				assert.True(t, apperrors.Is(err, apperrors.CodeConfiguration))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_SamplingRateRange(t *testing.T) {
	cfg := Config{
		API:        APIConfig{BaseURL: "http://localhost:3000"},
		Storage:    StorageConfig{Driver: StorageMemory},
		Monitoring: MonitoringConfig{SamplingRate: 1.5},
	}
	assert.True(t, apperrors.Is(cfg.Validate(), apperrors.CodeConfiguration))

	cfg.Monitoring.SamplingRate = 0.25
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EncryptionKeyFromFile(t *testing.T) {
	t.Setenv("ALCHEMORSEL_STORAGE_ENCRYPTION_KEY", "")
	keyPath := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyPath, []byte("  s3cret\n"), 0o600))
	path := writeConfig(t, `
api:
  base_url: https://api.example.com
storage:
  driver: memory
  encryption_key_file: `+keyPath+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Storage.EncryptionKey)
}

func TestResolveSecrets(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))

	t.Run("explicit value wins", func(t *testing.T) {
		cfg := &Config{Storage: StorageConfig{EncryptionKey: "inline", EncryptionKeyFile: filepath.Join(dir, "missing")}}
		require.NoError(t, resolveSecrets(cfg))
		assert.Equal(t, "inline", cfg.Storage.EncryptionKey)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := &Config{Storage: StorageConfig{EncryptionKeyFile: filepath.Join(dir, "missing")}}
		err := resolveSecrets(cfg)
		assert.True(t, apperrors.Is(err, apperrors.CodeConfiguration))
	})

	t.Run("empty file", func(t *testing.T) {
		cfg := &Config{Storage: StorageConfig{EncryptionKeyFile: empty}}
		err := resolveSecrets(cfg)
		assert.True(t, apperrors.Is(err, apperrors.CodeConfiguration))
	})
}
