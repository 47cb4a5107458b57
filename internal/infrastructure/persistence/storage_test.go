package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/infrastructure/config"
	"github.com/alchemorsel/client/internal/infrastructure/persistence/sealed"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

func TestOpen_FileDriverProvidesWatcher(t *testing.T) {
	storage, err := Open(context.Background(), config.StorageConfig{
		Driver: config.StorageFile,
		Path:   filepath.Join(t.TempDir(), "storage.json"),
	}, zap.NewNop())
	require.NoError(t, err)
	defer storage.Close()

	assert.NotNil(t, storage.Watcher)
}

func TestOpen_SQLiteDriver(t *testing.T) {
	storage, err := Open(context.Background(), config.StorageConfig{
		Driver: config.StorageSQLite,
		Path:   filepath.Join(t.TempDir(), "client.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	defer storage.Close()

	assert.Nil(t, storage.Watcher)
	require.NoError(t, storage.Set(context.Background(), "k", "v"))
}

func TestOpen_EncryptionKeySealsValues(t *testing.T) {
	storage, err := Open(context.Background(), config.StorageConfig{
		Driver:        config.StorageMemory,
		EncryptionKey: "secret",
	}, zap.NewNop())
	require.NoError(t, err)
	defer storage.Close()

	_, ok := storage.KeyValueStore.(*sealed.Store)
	assert.True(t, ok)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "floppy"}, zap.NewNop())
	assert.True(t, apperrors.Is(err, apperrors.CodeConfiguration))
}
