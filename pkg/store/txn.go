package store

import (
	"bytes"

	"go.etcd.io/bbolt"

	"github.com/orneryd/convergedb/pkg/framing"
	"github.com/orneryd/convergedb/pkg/hyberr"
)

// DefaultAlign is the alignment (in bytes) used for table payloads unless a
// caller asks for something else. 8 covers the widest scalar field our
// binary encodings use (float64, uint64, int64) without over-aligning
// smaller tables.
const DefaultAlign = 8

// WriteTxn is the single write transaction a logical operation runs inside.
// Every Put/Delete it performs commits together when the enclosing
// Store.Update callback returns nil, or not at all if it returns an error.
type WriteTxn struct {
	tx *bbolt.Tx
}

// Put frames value and stores it under key in table, creating the table's
// bucket lazily if Open somehow didn't (defensive; Open always creates the
// known tables up front).
func (w *WriteTxn) Put(table string, key []byte, value []byte) error {
	return w.PutAligned(table, key, value, DefaultAlign)
}

// PutAligned is Put with an explicit payload alignment.
func (w *WriteTxn) PutAligned(table string, key, value []byte, align int) error {
	b := w.tx.Bucket([]byte(table))
	if b == nil {
		var err error
		b, err = w.tx.CreateBucket([]byte(table))
		if err != nil {
			return hyberr.Wrap(hyberr.Storage, "store.Put", err)
		}
	}
	frame := framing.Encode(value, align)
	if err := b.Put(key, frame); err != nil {
		return hyberr.Wrap(hyberr.Storage, "store.Put", err)
	}
	return nil
}

// Get reads and validates the frame stored under key in table.
func (w *WriteTxn) Get(table string, key []byte) (Borrowed, error) {
	b := w.tx.Bucket([]byte(table))
	if b == nil {
		return Borrowed{}, hyberr.New(hyberr.NotFound, "store.Get", "no such key").WithField(string(key))
	}
	raw := b.Get(key)
	if raw == nil {
		return Borrowed{}, hyberr.New(hyberr.NotFound, "store.Get", "no such key").WithField(string(key))
	}
	bor, err := decodeFramed(raw, DefaultAlign)
	if err != nil {
		return Borrowed{}, hyberr.Wrap(hyberr.Serialization, "store.Get", err)
	}
	return bor, nil
}

// Delete removes key from table. Deleting an absent key is a no-op rather
// than an error.
func (w *WriteTxn) Delete(table string, key []byte) error {
	b := w.tx.Bucket([]byte(table))
	if b == nil {
		return nil
	}
	if err := b.Delete(key); err != nil {
		return hyberr.Wrap(hyberr.Storage, "store.Delete", err)
	}
	return nil
}

// ScanPrefix calls fn for every key in table starting with prefix, in key
// order, stopping at the first error fn returns and returning that error.
// There is no dedicated stop sentinel; callers that want to break early
// return an error of their own and recognise it.
func (w *WriteTxn) ScanPrefix(table string, prefix []byte, fn func(key []byte, val Borrowed) error) error {
	return scanPrefix(w.tx, table, prefix, fn)
}

// ReadTxn is a pooled read transaction handed out by Store.View. It exposes
// the same Get/ScanPrefix surface as WriteTxn, minus mutation.
type ReadTxn struct {
	tx *bbolt.Tx
}

func (r *ReadTxn) Get(table string, key []byte) (Borrowed, error) {
	b := r.tx.Bucket([]byte(table))
	if b == nil {
		return Borrowed{}, hyberr.New(hyberr.NotFound, "store.Get", "no such key").WithField(string(key))
	}
	raw := b.Get(key)
	if raw == nil {
		return Borrowed{}, hyberr.New(hyberr.NotFound, "store.Get", "no such key").WithField(string(key))
	}
	bor, err := decodeFramed(raw, DefaultAlign)
	if err != nil {
		return Borrowed{}, hyberr.Wrap(hyberr.Serialization, "store.Get", err)
	}
	return bor, nil
}

func (r *ReadTxn) ScanPrefix(table string, prefix []byte, fn func(key []byte, val Borrowed) error) error {
	return scanPrefix(r.tx, table, prefix, fn)
}

func scanPrefix(tx *bbolt.Tx, table string, prefix []byte, fn func(key []byte, val Borrowed) error) error {
	b := tx.Bucket([]byte(table))
	if b == nil {
		return nil
	}
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		bor, err := decodeFramed(v, DefaultAlign)
		if err != nil {
			return hyberr.Wrap(hyberr.Serialization, "store.ScanPrefix", err)
		}
		if err := fn(k, bor); err != nil {
			return err
		}
	}
	return nil
}
