package graphalgo

import (
	"path/filepath"
	"testing"

	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/graphidx"
	"github.com/orneryd/convergedb/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) *store.Store {
	t.Helper()
	kv, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func addEdge(t *testing.T, kv *store.Store, id, from, to string) {
	t.Helper()
	idx := graphidx.New()
	require.NoError(t, kv.Update(func(tx *store.WriteTxn) error {
		return idx.AddEdge(tx, &entity.Edge{ID: entity.EdgeID(id), From: entity.NodeID(from), To: entity.NodeID(to), EdgeType: "X"})
	}))
}

func TestConnectedComponents_TwoComponents(t *testing.T) {
	kv := newTestKV(t)
	addEdge(t, kv, "e1", "a", "b")
	addEdge(t, kv, "e2", "c", "d")
	// e and f are isolated singletons.

	var components [][]entity.NodeID
	require.NoError(t, kv.View(func(tx *store.ReadTxn) error {
		var err error
		components, err = ConnectedComponents(tx, []entity.NodeID{"a", "b", "c", "d", "e", "f"})
		return err
	}))

	require.Len(t, components, 4)
	sizes := make(map[int]int)
	for _, c := range components {
		sizes[len(c)]++
	}
	assert.Equal(t, 2, sizes[2]) // {a,b} and {c,d}
	assert.Equal(t, 2, sizes[1]) // {e} and {f}
}

func TestConnectedComponents_TreatsEdgesAsUndirected(t *testing.T) {
	kv := newTestKV(t)
	addEdge(t, kv, "e1", "a", "b") // directed a->b only

	var components [][]entity.NodeID
	require.NoError(t, kv.View(func(tx *store.ReadTxn) error {
		var err error
		components, err = ConnectedComponents(tx, []entity.NodeID{"a", "b"})
		return err
	}))
	require.Len(t, components, 1)
	assert.ElementsMatch(t, []entity.NodeID{"a", "b"}, components[0])
}

func TestHasCycle_DetectsCycle(t *testing.T) {
	kv := newTestKV(t)
	addEdge(t, kv, "e1", "a", "b")
	addEdge(t, kv, "e2", "b", "c")
	addEdge(t, kv, "e3", "c", "a")

	var cyclic bool
	require.NoError(t, kv.View(func(tx *store.ReadTxn) error {
		var err error
		cyclic, err = HasCycle(tx, []entity.NodeID{"a", "b", "c"})
		return err
	}))
	assert.True(t, cyclic)
}

func TestHasCycle_NoCycleInDAG(t *testing.T) {
	kv := newTestKV(t)
	addEdge(t, kv, "e1", "a", "b")
	addEdge(t, kv, "e2", "b", "c")

	var cyclic bool
	require.NoError(t, kv.View(func(tx *store.ReadTxn) error {
		var err error
		cyclic, err = HasCycle(tx, []entity.NodeID{"a", "b", "c"})
		return err
	}))
	assert.False(t, cyclic)
}
