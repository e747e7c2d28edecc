package entity

import (
	"github.com/google/uuid"

	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/orneryd/convergedb/pkg/store"
)

// Store is typed CRUD for nodes, edges and embeddings over one KV
// substrate, fanning every mutation through an Indexer inside the same
// write transaction.
type Store struct {
	kv  *store.Store
	idx Indexer
}

// NewStore wires a KV substrate to an Indexer. Passing a nil Indexer is
// valid and installs a no-op, useful for tests that only exercise entity
// round-trips.
func NewStore(kv *store.Store, idx Indexer) *Store {
	if idx == nil {
		idx = noopIndexer{}
	}
	return &Store{kv: kv, idx: idx}
}

func validateID(op string, id string) error {
	if id == "" {
		return hyberr.New(hyberr.InvalidOperation, op, "id must be non-empty")
	}
	return nil
}

// InsertNode upserts n: serialize, KV put, then index deltas, all inside
// one write transaction so a failure at any step leaves no partial state.
func (s *Store) InsertNode(n *Node) error {
	c := n.Common()
	if c == nil {
		return hyberr.Newf(hyberr.InvalidOperation, "entity.InsertNode", "node kind %s has no populated variant", n.Kind)
	}
	if err := validateID("entity.InsertNode", string(c.ID)); err != nil {
		return err
	}

	payload, err := EncodeNode(n)
	if err != nil {
		return err
	}

	return s.kv.Update(func(tx *store.WriteTxn) error {
		if err := tx.Put(store.TableNodes, []byte(c.ID), payload); err != nil {
			return err
		}
		return s.idx.IndexNode(tx, n)
	})
}

// GetNode reads and decodes the node stored under id.
func (s *Store) GetNode(id NodeID) (*Node, error) {
	var n *Node
	err := s.kv.View(func(tx *store.ReadTxn) error {
		b, err := tx.Get(store.TableNodes, []byte(id))
		if err != nil {
			return err
		}
		n, err = DecodeNode(b.Bytes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteNode removes the node, its structural and graph index entries,
// and any edge-position-list entries that referenced it. Deleting an
// already-absent id is a no-op, not an error.
func (s *Store) DeleteNode(id NodeID) error {
	return s.kv.Update(func(tx *store.WriteTxn) error {
		b, err := tx.Get(store.TableNodes, []byte(id))
		if hyberr.KindOf(err) == hyberr.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		n, err := DecodeNode(b.Bytes)
		if err != nil {
			return err
		}
		if err := tx.Delete(store.TableNodes, []byte(id)); err != nil {
			return err
		}
		return s.idx.UnindexNode(tx, n)
	})
}

// InsertEdge upserts e, updating both graph index sides in the same write
// transaction. Re-inserting the same id is idempotent.
func (s *Store) InsertEdge(e *Edge) error {
	if err := validateID("entity.InsertEdge", string(e.ID)); err != nil {
		return err
	}
	if e.From == "" || e.To == "" {
		return hyberr.New(hyberr.InvalidOperation, "entity.InsertEdge", "edge must have both endpoints")
	}

	payload, err := EncodeEdge(e)
	if err != nil {
		return err
	}

	return s.kv.Update(func(tx *store.WriteTxn) error {
		if err := tx.Put(store.TableEdges, []byte(e.ID), payload); err != nil {
			return err
		}
		return s.idx.IndexEdge(tx, e)
	})
}

func (s *Store) GetEdge(id EdgeID) (*Edge, error) {
	var e *Edge
	err := s.kv.View(func(tx *store.ReadTxn) error {
		b, err := tx.Get(store.TableEdges, []byte(id))
		if err != nil {
			return err
		}
		e, err = DecodeEdge(b.Bytes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEdge removes e from both the `out:` and `in:` sides in one write
// transaction; failure on either side aborts both.
func (s *Store) DeleteEdge(id EdgeID) error {
	return s.kv.Update(func(tx *store.WriteTxn) error {
		b, err := tx.Get(store.TableEdges, []byte(id))
		if hyberr.KindOf(err) == hyberr.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		e, err := DecodeEdge(b.Bytes)
		if err != nil {
			return err
		}
		if err := tx.Delete(store.TableEdges, []byte(id)); err != nil {
			return err
		}
		return s.idx.UnindexEdge(tx, e)
	})
}

// InsertEmbedding upserts e, generating an id via uuid.NewString if the
// caller left it blank. Embeddings may be inserted before the node that
// will reference them.
func (s *Store) InsertEmbedding(e *Embedding) error {
	if e.ID == "" {
		e.ID = EmbeddingID(uuid.NewString())
	}
	payload, err := EncodeEmbedding(e)
	if err != nil {
		return err
	}
	return s.kv.Update(func(tx *store.WriteTxn) error {
		if err := tx.Put(store.TableEmbeddings, []byte(e.ID), payload); err != nil {
			return err
		}
		return s.idx.IndexEmbedding(tx, e)
	})
}

func (s *Store) GetEmbedding(id EmbeddingID) (*Embedding, error) {
	var e *Embedding
	err := s.kv.View(func(tx *store.ReadTxn) error {
		b, err := tx.Get(store.TableEmbeddings, []byte(id))
		if err != nil {
			return err
		}
		e, err = DecodeEmbedding(b.Bytes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetEmbeddingByNode resolves n's owning node, reads its EmbeddingID, then
// loads the embedding. Returns NotFound at either missing link rather than
// distinguishing which one.
func (s *Store) GetEmbeddingByNode(id NodeID) (*Embedding, error) {
	n, err := s.GetNode(id)
	if err != nil {
		return nil, err
	}
	c := n.Common()
	if c == nil || c.EmbeddingID == "" {
		return nil, hyberr.New(hyberr.NotFound, "entity.GetEmbeddingByNode", "node has no embedding").WithField(string(id))
	}
	return s.GetEmbedding(c.EmbeddingID)
}

// ForEachEmbedding iterates every stored embedding, in key order. Used to
// rebuild the in-memory vector index after a process restart (pkg/tiered's
// open path), since pkg/vector's HNSW graph is not itself persisted.
func (s *Store) ForEachEmbedding(fn func(*Embedding) error) error {
	return s.kv.View(func(tx *store.ReadTxn) error {
		return tx.ScanPrefix(store.TableEmbeddings, nil, func(_ []byte, val store.Borrowed) error {
			e, err := DecodeEmbedding(val.Bytes)
			if err != nil {
				return err
			}
			return fn(e)
		})
	})
}

// ForEachNode iterates every stored node, in key order. Its ids can seed
// pkg/graphalgo's whole-graph algorithms (connected components, cycle
// detection), which take the full node-id set from their caller rather than
// starting from a single anchor.
func (s *Store) ForEachNode(fn func(*Node) error) error {
	return s.kv.View(func(tx *store.ReadTxn) error {
		return tx.ScanPrefix(store.TableNodes, nil, func(_ []byte, val store.Borrowed) error {
			n, err := DecodeNode(val.Bytes)
			if err != nil {
				return err
			}
			return fn(n)
		})
	})
}

// DeleteEmbedding removes e. Deleting a node does not implicitly delete its
// embedding, since embeddings may be shared across revisions; callers call
// this explicitly when they mean to.
func (s *Store) DeleteEmbedding(id EmbeddingID) error {
	return s.kv.Update(func(tx *store.WriteTxn) error {
		b, err := tx.Get(store.TableEmbeddings, []byte(id))
		if hyberr.KindOf(err) == hyberr.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		e, err := DecodeEmbedding(b.Bytes)
		if err != nil {
			return err
		}
		if err := tx.Delete(store.TableEmbeddings, []byte(id)); err != nil {
			return err
		}
		return s.idx.UnindexEmbedding(tx, e)
	})
}
