package dbconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/orneryd/convergedb/pkg/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"CONVERGEDB_DATA_DIR", "CONVERGEDB_VECTOR_DIMENSIONS", "CONVERGEDB_VECTOR_METRIC",
		"CONVERGEDB_HNSW_M", "CONVERGEDB_HNSW_EF_CONSTRUCTION", "CONVERGEDB_HNSW_EF_SEARCH", "CONVERGEDB_HNSW_NUM_LAYERS",
	} {
		os.Unsetenv(k)
	}

	cfg := LoadFromEnv()
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 768, cfg.Vector.Dimensions)
	assert.Equal(t, "cosine", cfg.Vector.Metric)
	assert.Equal(t, vector.DefaultHNSWConfig().M, cfg.Vector.M)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("CONVERGEDB_DATA_DIR", "/tmp/custom")
	t.Setenv("CONVERGEDB_VECTOR_DIMENSIONS", "1536")
	t.Setenv("CONVERGEDB_VECTOR_METRIC", "euclidean")

	cfg := LoadFromEnv()
	assert.Equal(t, "/tmp/custom", cfg.DataDir)
	assert.Equal(t, 1536, cfg.Vector.Dimensions)
	assert.Equal(t, "euclidean", cfg.Vector.Metric)
}

func TestValidate_RejectsEmptyDataDir(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.DataDir = ""
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveDimensions(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Vector.Dimensions = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownMetric(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Vector.Metric = "nonsense"
	require.Error(t, cfg.Validate())
}

func TestLoadOverlay_MissingFileIsNotError(t *testing.T) {
	cfg := LoadFromEnv()
	err := cfg.LoadOverlay(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
}

func TestLoadOverlay_MergesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	yaml := "data_dir: /custom/path\nvector:\n  dimensions: 256\n  metric: dot\n  m: 32\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg := LoadFromEnv()
	require.NoError(t, cfg.LoadOverlay(path))

	assert.Equal(t, "/custom/path", cfg.DataDir)
	assert.Equal(t, 256, cfg.Vector.Dimensions)
	assert.Equal(t, "dot", cfg.Vector.Metric)
	assert.Equal(t, 32, cfg.Vector.M)
}

func TestLoadOverlay_LeavesUnsetFieldsUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector:\n  metric: manhattan\n"), 0o644))

	cfg := LoadFromEnv()
	originalDataDir := cfg.DataDir
	require.NoError(t, cfg.LoadOverlay(path))

	assert.Equal(t, originalDataDir, cfg.DataDir)
	assert.Equal(t, "manhattan", cfg.Vector.Metric)
}

func TestManagerConfig_BuildsFromConfig(t *testing.T) {
	cfg := LoadFromEnv()
	mc, err := cfg.ManagerConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg.Vector.Dimensions, mc.Dimensions)
	assert.Equal(t, vector.Cosine, mc.Metric)
}

func TestManagerConfig_UnknownMetricErrors(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Vector.Metric = "nonsense"
	_, err := cfg.ManagerConfig()
	require.Error(t, err)
}
