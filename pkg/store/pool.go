package store

import (
	"sync"
	"sync/atomic"

	"go.etcd.io/bbolt"

	"github.com/orneryd/convergedb/pkg/hyberr"
)

// TxnPool hands out long-lived read transactions for reuse across View
// calls instead of paying bbolt's read-transaction setup cost on every
// query. A pooled transaction is tagged with the generation it was begun
// under; Borrow compares that tag against the store's current write
// generation and transparently rolls the stale transaction and begins a
// fresh one, which is what gives a goroutine that just wrote through
// Store.Update a guarantee that its very next View sees that write rather
// than a snapshot predating it.
type TxnPool struct {
	db  *bbolt.DB
	gen atomic.Uint64

	mu   sync.Mutex
	free []*pooledTxn
}

type pooledTxn struct {
	tx  *bbolt.Tx
	gen uint64
}

func newTxnPool(db *bbolt.DB) *TxnPool {
	return &TxnPool{db: db}
}

// bumpGeneration is called before every Store.Update write and again after
// a successful commit. Any pooled transaction begun before this point is
// stale and will be replaced the next time it's borrowed.
func (p *TxnPool) bumpGeneration() {
	p.gen.Add(1)
}

// ReadGuard is the handle Store.View borrows. It must be closed exactly
// once; it is never aborted mid-use by the borrower, only returned.
type ReadGuard struct {
	pool *TxnPool
	pt   *pooledTxn
}

func (g *ReadGuard) tx() *bbolt.Tx { return g.pt.tx }

// Close returns the transaction to the pool for reuse rather than rolling
// it back, unless the pool's generation has moved on since it was borrowed
// (see release).
func (g *ReadGuard) Close() {
	g.pool.release(g.pt)
}

// Borrow returns a read transaction tagged with the pool's current
// generation, reusing a free one from the pool when its tag still matches.
func (p *TxnPool) Borrow() (*ReadGuard, error) {
	curGen := p.gen.Load()

	p.mu.Lock()
	for len(p.free) > 0 {
		n := len(p.free) - 1
		pt := p.free[n]
		p.free = p.free[:n]
		p.mu.Unlock()

		if pt.gen == curGen {
			return &ReadGuard{pool: p, pt: pt}, nil
		}
		// Stale: this transaction predates the last write. Roll it back
		// and fall through to begin a fresh one.
		_ = pt.tx.Rollback()
		p.mu.Lock()
	}
	p.mu.Unlock()

	tx, err := p.db.Begin(false)
	if err != nil {
		return nil, hyberr.Wrap(hyberr.TxnBegin, "store.Borrow", err)
	}
	return &ReadGuard{pool: p, pt: &pooledTxn{tx: tx, gen: curGen}}, nil
}

// release returns pt to the free list if it's still current, otherwise
// rolls it back. A transaction can go stale between Borrow and Close if a
// write commits while it's on loan; in that case there is no point keeping
// it around for the next borrower to immediately discard.
func (p *TxnPool) release(pt *pooledTxn) {
	if pt.gen != p.gen.Load() {
		_ = pt.tx.Rollback()
		return
	}
	p.mu.Lock()
	p.free = append(p.free, pt)
	p.mu.Unlock()
}

// closeAll rolls back every idle pooled transaction. Called from
// Store.Update before each write and from Store.Close.
func (p *TxnPool) closeAll() {
	p.mu.Lock()
	free := p.free
	p.free = nil
	p.mu.Unlock()

	for _, pt := range free {
		_ = pt.tx.Rollback()
	}
}
