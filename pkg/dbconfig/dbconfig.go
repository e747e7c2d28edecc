// Package dbconfig handles configuration via environment variables, with an
// optional YAML overlay file: data directory, store timeout, HNSW defaults,
// segment size, and the vector metric.
package dbconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/convergedb/pkg/vector"
)

// Config holds everything needed to open a pkg/tiered.Coordinator.
type Config struct {
	// DataDir is the root directory under which every (type, tier) pair
	// gets its own subdirectory.
	DataDir string

	// StoreTimeout bounds how long pkg/store.Open waits for a file lock.
	StoreTimeout time.Duration

	Vector VectorConfig
}

// VectorConfig mirrors vector.ManagerConfig's fields, exported here so a
// YAML file can override them without importing pkg/vector directly.
type VectorConfig struct {
	Dimensions           int    `yaml:"dimensions"`
	MaxVectorsPerSegment int    `yaml:"max_vectors_per_segment"`
	Metric               string `yaml:"metric"`
	M                    int    `yaml:"m"`
	EfConstruction       int    `yaml:"ef_construction"`
	EfSearch             int    `yaml:"ef_search"`
	NumLayers            int    `yaml:"num_layers"`
}

type yamlOverlay struct {
	DataDir string       `yaml:"data_dir"`
	Vector  VectorConfig `yaml:"vector"`
}

// LoadFromEnv reads every setting from the environment, applying defaults
// where unset. Call LoadOverlay afterward if a YAML file should take
// precedence over the environment defaults.
func LoadFromEnv() *Config {
	hnsw := vector.DefaultHNSWConfig()
	return &Config{
		DataDir:      getEnv("CONVERGEDB_DATA_DIR", "./data"),
		StoreTimeout: getEnvDuration("CONVERGEDB_STORE_TIMEOUT", 5*time.Second),
		Vector: VectorConfig{
			Dimensions:           getEnvInt("CONVERGEDB_VECTOR_DIMENSIONS", 768),
			MaxVectorsPerSegment: getEnvInt("CONVERGEDB_MAX_VECTORS_PER_SEGMENT", 100_000),
			Metric:               getEnv("CONVERGEDB_VECTOR_METRIC", "cosine"),
			M:                    getEnvInt("CONVERGEDB_HNSW_M", hnsw.M),
			EfConstruction:       getEnvInt("CONVERGEDB_HNSW_EF_CONSTRUCTION", hnsw.EfConstruction),
			EfSearch:             getEnvInt("CONVERGEDB_HNSW_EF_SEARCH", hnsw.EfSearch),
			NumLayers:            getEnvInt("CONVERGEDB_HNSW_NUM_LAYERS", hnsw.NumLayers),
		},
	}
}

// LoadOverlay merges a YAML file's settings into c, overwriting any field
// the file sets explicitly. A missing file is not an error: the overlay is
// optional.
func (c *Config) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dbconfig: read overlay: %w", err)
	}

	var o yamlOverlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("dbconfig: parse overlay: %w", err)
	}

	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Vector.Dimensions != 0 {
		c.Vector.Dimensions = o.Vector.Dimensions
	}
	if o.Vector.MaxVectorsPerSegment != 0 {
		c.Vector.MaxVectorsPerSegment = o.Vector.MaxVectorsPerSegment
	}
	if o.Vector.Metric != "" {
		c.Vector.Metric = o.Vector.Metric
	}
	if o.Vector.M != 0 {
		c.Vector.M = o.Vector.M
	}
	if o.Vector.EfConstruction != 0 {
		c.Vector.EfConstruction = o.Vector.EfConstruction
	}
	if o.Vector.EfSearch != 0 {
		c.Vector.EfSearch = o.Vector.EfSearch
	}
	if o.Vector.NumLayers != 0 {
		c.Vector.NumLayers = o.Vector.NumLayers
	}
	return nil
}

// Validate checks for logical errors before the config is used to open a
// Coordinator.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("dbconfig: data dir must not be empty")
	}
	if c.Vector.Dimensions <= 0 {
		return fmt.Errorf("dbconfig: vector dimensions must be positive, got %d", c.Vector.Dimensions)
	}
	if c.Vector.MaxVectorsPerSegment <= 0 {
		return fmt.Errorf("dbconfig: max vectors per segment must be positive, got %d", c.Vector.MaxVectorsPerSegment)
	}
	if _, err := c.metric(); err != nil {
		return err
	}
	return nil
}

func (c *Config) metric() (vector.Metric, error) {
	switch c.Vector.Metric {
	case "cosine":
		return vector.Cosine, nil
	case "euclidean":
		return vector.Euclidean, nil
	case "manhattan":
		return vector.Manhattan, nil
	case "dot":
		return vector.Dot, nil
	case "hamming":
		return vector.Hamming, nil
	case "jaccard":
		return vector.Jaccard, nil
	default:
		return 0, fmt.Errorf("dbconfig: unknown vector metric %q", c.Vector.Metric)
	}
}

// ManagerConfig builds the vector.ManagerConfig this Config describes.
func (c *Config) ManagerConfig() (vector.ManagerConfig, error) {
	metric, err := c.metric()
	if err != nil {
		return vector.ManagerConfig{}, err
	}
	return vector.ManagerConfig{
		MaxVectorsPerSegment: c.Vector.MaxVectorsPerSegment,
		Dimensions:           c.Vector.Dimensions,
		Metric:               metric,
		HNSW: vector.HNSWConfig{
			M:              c.Vector.M,
			EfConstruction: c.Vector.EfConstruction,
			EfSearch:       c.Vector.EfSearch,
			NumLayers:      c.Vector.NumLayers,
		},
	}, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
