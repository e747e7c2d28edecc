package entity

import "github.com/orneryd/convergedb/pkg/store"

// Indexer is implemented by pkg/indexmgr. Store holds one and calls it from
// inside the same write transaction as every mutation, so a commit carries
// the KV put and every index delta atomically. Declaring the interface
// here instead of importing indexmgr avoids an import cycle, since
// indexmgr necessarily imports entity for the Node/Edge/Embedding types it
// indexes.
type Indexer interface {
	IndexNode(tx *store.WriteTxn, n *Node) error
	UnindexNode(tx *store.WriteTxn, n *Node) error
	IndexEdge(tx *store.WriteTxn, e *Edge) error
	UnindexEdge(tx *store.WriteTxn, e *Edge) error
	IndexEmbedding(tx *store.WriteTxn, e *Embedding) error
	UnindexEmbedding(tx *store.WriteTxn, e *Embedding) error
}

// noopIndexer satisfies Indexer for a Store opened without one (tests that
// only need entity round-trips, not index consistency).
type noopIndexer struct{}

func (noopIndexer) IndexNode(*store.WriteTxn, *Node) error           { return nil }
func (noopIndexer) UnindexNode(*store.WriteTxn, *Node) error         { return nil }
func (noopIndexer) IndexEdge(*store.WriteTxn, *Edge) error           { return nil }
func (noopIndexer) UnindexEdge(*store.WriteTxn, *Edge) error         { return nil }
func (noopIndexer) IndexEmbedding(*store.WriteTxn, *Embedding) error { return nil }
func (noopIndexer) UnindexEmbedding(*store.WriteTxn, *Embedding) error {
	return nil
}
