// Package indexmgr implements the single mediator that every entity
// mutation flows through, fanning deltas out to the structural, graph, and
// vector index families inside the caller's write transaction. Index
// tables are only ever mutated through this package.
package indexmgr

import (
	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/graphidx"
	"github.com/orneryd/convergedb/pkg/store"
	"github.com/orneryd/convergedb/pkg/structidx"
	"github.com/orneryd/convergedb/pkg/vector"
)

// Manager is the mediator. It satisfies entity.Indexer.
type Manager struct {
	structural *structidx.Index
	graph      *graphidx.Index
	vectors    *vector.Index
}

func New(vectors *vector.Index) *Manager {
	return &Manager{
		structural: structidx.New(),
		graph:      graphidx.New(),
		vectors:    vectors,
	}
}

// IndexNode emits structural deltas for node_type plus the node's
// variant-specific fields.
func (m *Manager) IndexNode(tx *store.WriteTxn, n *entity.Node) error {
	id := n.ID()
	for property, value := range n.StructuralFields() {
		if err := m.structural.Add(tx, property, value, id); err != nil {
			return err
		}
	}
	return nil
}

// UnindexNode removes every structural entry IndexNode would have added,
// then strips any graph position-list entries still naming this node.
func (m *Manager) UnindexNode(tx *store.WriteTxn, n *entity.Node) error {
	id := n.ID()
	for property, value := range n.StructuralFields() {
		if err := m.structural.Remove(tx, property, value, id); err != nil {
			return err
		}
	}
	return m.graph.RemoveNodeReferences(tx, id)
}

// IndexEdge updates both graph index sides.
func (m *Manager) IndexEdge(tx *store.WriteTxn, e *entity.Edge) error {
	return m.graph.AddEdge(tx, e)
}

// UnindexEdge is the dual of IndexEdge.
func (m *Manager) UnindexEdge(tx *store.WriteTxn, e *entity.Edge) error {
	return m.graph.RemoveEdge(tx, e)
}

// IndexEmbedding inserts into the current appendable vector segment. The
// vector graph itself lives in memory for the process lifetime; the
// embedding records in the embeddings table are the durable form, and a
// coordinator restart rebuilds the graph by re-inserting every stored
// embedding (see pkg/tiered's open path).
func (m *Manager) IndexEmbedding(tx *store.WriteTxn, e *entity.Embedding) error {
	return m.vectors.Add(string(e.ID), e.Vector, nil)
}

// UnindexEmbedding is the dual of IndexEmbedding.
func (m *Manager) UnindexEmbedding(tx *store.WriteTxn, e *entity.Embedding) error {
	m.vectors.Remove(string(e.ID))
	return nil
}
