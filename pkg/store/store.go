// Package store implements the KV substrate: a single mapped file backing
// one environment, read/write transactions, named tables, and aligned
// zero-copy reads with a safe-copy fallback.
//
// The mapped file is provided by go.etcd.io/bbolt rather than a hand-rolled
// mmap+B+tree, since bbolt already gives the shape this substrate needs: a
// single file, page-based B+tree, one writer and many lock-free MVCC
// readers, and Get results that alias the mapped pages for the transaction's
// lifetime. pkg/framing layers a magic/version/CRC32C/padding record format
// on top of bbolt's raw key/value bytes.
package store

import (
	"log"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"

	"github.com/orneryd/convergedb/pkg/framing"
	"github.com/orneryd/convergedb/pkg/hyberr"
)

// Table names double as bbolt bucket names. Every table a database needs is
// created on Open so later code never has to special-case a missing bucket.
const (
	TableNodes        = "nodes"
	TableEdges        = "edges"
	TableEmbeddings   = "embeddings"
	TableStructIndex  = "struct_idx"
	TableGraphOut     = "graph_out"
	TableGraphIn      = "graph_in"
	TableSegmentsMeta = "segments_meta"
)

var allTables = []string{
	TableNodes, TableEdges, TableEmbeddings,
	TableStructIndex, TableGraphOut, TableGraphIn, TableSegmentsMeta,
}

// Options configures Open.
type Options struct {
	// ReadOnly opens the environment without creating it and disallows
	// write transactions.
	ReadOnly bool
	// Timeout bounds how long Open waits for the environment's file lock.
	Timeout time.Duration
}

// Store is one mapped environment. All tables for a single storage instance
// (one per database type and temperature tier) live in one Store.
type Store struct {
	db   *bbolt.DB
	pool *TxnPool
}

// Open creates or opens the environment at path, creating every known table
// bucket if absent.
func Open(path string, opts Options) (*Store, error) {
	bopts := &bbolt.Options{
		Timeout:  opts.Timeout,
		ReadOnly: opts.ReadOnly,
	}
	db, err := bbolt.Open(path, 0o600, bopts)
	if err != nil {
		return nil, hyberr.Wrap(hyberr.EnvOpen, "store.Open", err)
	}

	if !opts.ReadOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			for _, t := range allTables {
				if _, err := tx.CreateBucketIfNotExists([]byte(t)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			_ = db.Close()
			return nil, hyberr.Wrap(hyberr.EnvOpen, "store.Open", err)
		}
	}

	log.Printf("[store] opened %s", db.Path())
	return &Store{db: db, pool: newTxnPool(db)}, nil
}

// Close releases the environment's file lock and flushes the pooled read
// transactions.
func (s *Store) Close() error {
	s.pool.closeAll()
	if err := s.db.Close(); err != nil {
		return hyberr.Wrap(hyberr.Storage, "store.Close", err)
	}
	return nil
}

// Path returns the backing file path, as bbolt reports it.
func (s *Store) Path() string { return s.db.Path() }

// Update runs fn inside a single write transaction. All mutations fn makes
// (across any number of tables) commit together or not at all, which is how
// every index stays consistent with the entity store when pkg/indexmgr
// funnels its deltas through the same WriteTxn.
func (s *Store) Update(fn func(*WriteTxn) error) error {
	// Idle pooled read transactions hold bbolt's mmap read lock, which a
	// commit that grows the file takes exclusively. Mark them stale and roll
	// the idle ones back first so a View followed by an Update cannot hang.
	s.pool.bumpGeneration()
	s.pool.closeAll()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&WriteTxn{tx: tx})
	})
	if err != nil {
		if e, ok := err.(*hyberr.Error); ok {
			return e
		}
		return hyberr.Wrap(hyberr.Storage, "store.Update", err)
	}
	s.pool.bumpGeneration()
	return nil
}

// View borrows a pooled read transaction for the duration of fn. The
// transaction is never explicitly aborted by the caller; returning it via
// the pool's guard is the only lifecycle action a borrower performs.
func (s *Store) View(fn func(*ReadTxn) error) error {
	guard, err := s.pool.Borrow()
	if err != nil {
		return hyberr.Wrap(hyberr.TxnBegin, "store.View", err)
	}
	defer guard.Close()

	return fn(&ReadTxn{tx: guard.tx()})
}

// alignedView checks whether the first byte of payload sits on an
// align-byte memory boundary. When it does, callers may hand the slice to
// readers without copying; otherwise they must materialize a copy once.
func alignedView(payload []byte, align int) bool {
	if align <= 1 || len(payload) == 0 {
		return true
	}
	addr := uintptr(unsafe.Pointer(&payload[0]))
	return addr%uintptr(align) == 0
}

// Borrowed wraps a payload slice together with whether it was returned
// zero-copy (aliasing the mapped page) or materialized via a defensive
// copy. The distinction is informational for callers that care (e.g.
// instrumentation); the bytes are safe to read either way for the life of
// the enclosing transaction.
type Borrowed struct {
	Bytes    []byte
	ZeroCopy bool
}

// decodeFramed validates a frame and returns a Borrowed view, copying once
// if the payload is not aligned to align bytes.
func decodeFramed(raw []byte, align int) (Borrowed, error) {
	payload, err := framing.Decode(raw)
	if err != nil {
		return Borrowed{}, err
	}
	if alignedView(payload, align) {
		return Borrowed{Bytes: payload, ZeroCopy: true}, nil
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return Borrowed{Bytes: cp, ZeroCopy: false}, nil
}
