package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"detailinfra/internal/classification"
	"detailinfra/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:           "0",
		QueuePath:      filepath.Join(t.TempDir(), "queue.db"),
		SyncInterval:   time.Second,
		SyncRatePerSec: 0,
		LogFormat:      "json",
		ServiceName:    "detailinfra-test",
	}
}

func TestBuild_QueueOnlyWithoutDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Nil(t, a.Pool)
	assert.Nil(t, a.Events)

	out, err := a.Service.Save(ctx, classification.Actor{Role: classification.RoleAdmin},
		classification.SaveRequest{ClassifyRequest: classification.ClassifyRequest{Make: "Honda", Model: "Civic"}})
	require.NoError(t, err)
	assert.True(t, out.Queued)
	a.Close()

	// The queue survives a restart.
	a, err = Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	pending, err := a.Service.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Civic", pending[0].Model)

	_, err = a.Migrate(ctx)
	assert.Error(t, err)
}

func TestBuild_BadCatalogPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestBuild_UnreachableDatabaseFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"
	a, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Pool)

	res, err := a.Service.Classify(context.Background(), classification.ClassifyRequest{Make: "Ford", Model: "F-150"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Category)
}
