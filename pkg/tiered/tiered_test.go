package tiered

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/query"
	"github.com/orneryd/convergedb/pkg/store"
	"github.com/orneryd/convergedb/pkg/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMgrCfg() (vector.ManagerConfig, error) {
	return vector.ManagerConfig{
		MaxVectorsPerSegment: 1000,
		Dimensions:           4,
		HNSW:                 vector.DefaultHNSWConfig(),
		Metric:               vector.Cosine,
	}, nil
}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c := NewCoordinator(t.TempDir(), store.Options{}, testMgrCfg)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpen_ReturnsCachedInstanceForSamePair(t *testing.T) {
	c := newTestCoordinator(t)

	entities1, exec1, err := c.Open(Conversations, Active)
	require.NoError(t, err)
	entities2, exec2, err := c.Open(Conversations, Active)
	require.NoError(t, err)

	assert.Same(t, entities1, entities2)
	assert.Same(t, exec1, exec2)
}

func TestOpen_SeparateInstancesPerTier(t *testing.T) {
	c := newTestCoordinator(t)

	entitiesActive, _, err := c.Open(Conversations, Active)
	require.NoError(t, err)
	entitiesArchive, _, err := c.Open(Conversations, Archive)
	require.NoError(t, err)

	assert.NotSame(t, entitiesActive, entitiesArchive)

	require.NoError(t, entitiesActive.InsertNode(&entity.Node{Kind: entity.KindChat, Chat: &entity.ChatNode{Common: entity.Common{ID: "c1"}, Title: "t"}}))
	_, err = entitiesArchive.GetNode("c1")
	require.Error(t, err, "a node inserted into the active tier must not be visible in the archive tier")
}

func TestOpen_UntieredDatabaseSkipsTierSegment(t *testing.T) {
	c := newTestCoordinator(t)
	_, _, err := c.Open(Knowledge, None)
	require.NoError(t, err)

	p := c.path(Knowledge, None)
	assert.Equal(t, filepath.Join(c.dataDir, string(Knowledge), "db"), p)
}

func TestActive_RoutesToActiveTier(t *testing.T) {
	c := newTestCoordinator(t)
	entitiesActive, _, err := c.Active(Conversations)
	require.NoError(t, err)
	entitiesDirect, _, err := c.Open(Conversations, Active)
	require.NoError(t, err)
	assert.Same(t, entitiesActive, entitiesDirect)
}

func TestQueryAll_FansOutAcrossOpenedTiers(t *testing.T) {
	c := newTestCoordinator(t)

	entitiesActive, _, err := c.Open(Conversations, Active)
	require.NoError(t, err)
	entitiesArchive, _, err := c.Open(Conversations, Archive)
	require.NoError(t, err)

	require.NoError(t, entitiesActive.InsertNode(&entity.Node{
		Kind: entity.KindMessage, Message: &entity.MessageNode{Common: entity.Common{ID: "m1"}, ChatID: "c1", Role: "user"},
	}))
	require.NoError(t, entitiesArchive.InsertNode(&entity.Node{
		Kind: entity.KindMessage, Message: &entity.MessageNode{Common: entity.Common{ID: "m2"}, ChatID: "c1", Role: "user"},
	}))

	rows, err := c.QueryAll(context.Background(), Conversations, query.ConvergedQuery{
		StructuralFilters: []query.StructuralFilter{{Property: "chat_id", Value: "c1"}},
		Limit:             10,
	})
	require.NoError(t, err)

	var ids []entity.NodeID
	for _, r := range rows {
		ids = append(ids, r.Node.ID())
	}
	assert.ElementsMatch(t, []entity.NodeID{"m1", "m2"}, ids)
}

func TestVectorStats_OpensInstanceAndReportsStats(t *testing.T) {
	c := newTestCoordinator(t)
	entities, _, err := c.Open(Conversations, Active)
	require.NoError(t, err)

	emb := &entity.Embedding{Vector: []float32{1, 2, 3, 4}}
	require.NoError(t, entities.InsertEmbedding(emb))

	stats, err := c.VectorStats(Conversations, Active)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectors)
}

func TestRebuildVectorIndex_ReplaysEmbeddingsOnReopen(t *testing.T) {
	dataDir := t.TempDir()
	c1 := NewCoordinator(dataDir, store.Options{}, testMgrCfg)
	entities, _, err := c1.Open(Conversations, Active)
	require.NoError(t, err)
	require.NoError(t, entities.InsertEmbedding(&entity.Embedding{ID: "emb-1", Vector: []float32{1, 0, 0, 0}}))
	require.NoError(t, c1.Close())

	c2 := NewCoordinator(dataDir, store.Options{}, testMgrCfg)
	defer c2.Close()
	stats, err := c2.VectorStats(Conversations, Active)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectors, "reopening must rebuild the in-memory vector index from durable embeddings")
}

func TestClose_ClearsInstances(t *testing.T) {
	c := newTestCoordinator(t)
	_, _, err := c.Open(Conversations, Active)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Empty(t, c.instances)
}

func TestDefaultDataDir_ResolvesNonEmptyPath(t *testing.T) {
	dir, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Contains(t, dir, "convergedb")
}
