package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nodegraph/infrastructure/config"
	pkgerrors "nodegraph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTree = `
- name: A
  type: root
  description: top
  children:
    - name: B
      type: leaf
      description: nested
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment:         "test",
		LogLevel:            "error",
		Store:               config.StoreConfig{Kind: config.StoreMemory},
		BreakerFailureRatio: 0.6,
		ImportStrict:        true,
	}
}

func writeTree(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInitializeContainer_Memory(t *testing.T) {
	container, cleanup, err := InitializeContainer(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, container.Store)
	assert.NotNil(t, container.CommandBus)
	assert.NotNil(t, container.QueryBus)
	assert.NotNil(t, container.Importer)
	assert.NotNil(t, container.HTTPHandler)
	assert.NoError(t, container.Store.Ping(context.Background()))
}

func TestInitializeContainer_SQLiteWithBreaker(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Kind: config.StoreSQLite, Path: filepath.Join(t.TempDir(), "nodes.db")}
	cfg.EnableBreaker = true

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	cfg.ImportOnStart = true
	cfg.ImportFile = writeTree(t, sampleTree)
	require.NoError(t, container.ImportOnStart(context.Background()))

	nodes, err := container.Store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestInitializeContainer_UnsupportedStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Kind: "redis"}

	_, _, err := InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)
}

func TestInitializeContainer_BadLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogLevel = "loud"

	_, _, err := InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)
}

type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, resource string, ttl time.Duration) (func(context.Context) error, error) {
	return nil, pkgerrors.NewConflictError("another import is running").WithCode(pkgerrors.CodeLockHeld)
}

func TestContainer_ImportOnStart(t *testing.T) {
	t.Run("disabled does nothing", func(t *testing.T) {
		container, cleanup, err := InitializeContainer(context.Background(), testConfig(t))
		require.NoError(t, err)
		defer cleanup()

		require.NoError(t, container.ImportOnStart(context.Background()))
		nodes, err := container.Store.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})

	t.Run("strict returns the failure", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ImportOnStart = true
		cfg.ImportFile = writeTree(t, "- name: A\n  type: root\n")
		container, cleanup, err := InitializeContainer(context.Background(), cfg)
		require.NoError(t, err)
		defer cleanup()

		err = container.ImportOnStart(context.Background())
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("lenient logs and continues", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ImportOnStart = true
		cfg.ImportStrict = false
		cfg.ImportFile = filepath.Join(t.TempDir(), "absent.yaml")
		container, cleanup, err := InitializeContainer(context.Background(), cfg)
		require.NoError(t, err)
		defer cleanup()

		assert.NoError(t, container.ImportOnStart(context.Background()))
	})

	t.Run("held lock skips import even when strict", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ImportOnStart = true
		cfg.ImportFile = writeTree(t, sampleTree)
		container, cleanup, err := InitializeContainer(context.Background(), cfg)
		require.NoError(t, err)
		defer cleanup()
		container.Importer.WithLocker(heldLocker{})

		require.NoError(t, container.ImportOnStart(context.Background()))
		nodes, err := container.Store.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})

	t.Run("reset replaces stored nodes", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ImportOnStart = true
		cfg.ImportReset = true
		cfg.ImportFile = writeTree(t, sampleTree)
		container, cleanup, err := InitializeContainer(context.Background(), cfg)
		require.NoError(t, err)
		defer cleanup()

		require.NoError(t, container.ImportOnStart(context.Background()))
		require.NoError(t, container.ImportOnStart(context.Background()))

		nodes, err := container.Store.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
	})
}
