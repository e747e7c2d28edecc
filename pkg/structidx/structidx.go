// Package structidx implements the structural (property) index: a table
// keyed by property:value, valued as a sorted, deduplicated set of NodeIds.
// Keys are 0x00-separated segments so prefix scans enumerate a property's
// values without a separate catalog.
package structidx

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/orneryd/convergedb/pkg/store"
)

// Index is the structural property index. It never opens its own
// transactions; every method takes one from the caller so writes land in
// the same commit as the KV put and other index families.
type Index struct{}

func New() *Index { return &Index{} }

// key builds the property:value table key: property + 0x00 + value.
func key(property, value string) []byte {
	k := make([]byte, 0, len(property)+1+len(value))
	k = append(k, property...)
	k = append(k, 0x00)
	k = append(k, value...)
	return k
}

// prefix builds the scan prefix for every value of a property.
func prefix(property string) []byte {
	k := make([]byte, 0, len(property)+1)
	k = append(k, property...)
	k = append(k, 0x00)
	return k
}

// Add inserts id into the (property, value) set, creating it if absent.
func (idx *Index) Add(tx *store.WriteTxn, property, value string, id entity.NodeID) error {
	k := key(property, value)
	ids, err := idx.readSet(tx, k)
	if err != nil && hyberr.KindOf(err) != hyberr.NotFound {
		return err
	}
	pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if pos < len(ids) && ids[pos] == id {
		return nil // already present
	}
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	return idx.writeSet(tx, k, ids)
}

// Remove deletes id from the (property, value) set. If the set becomes
// empty the key is removed entirely so prefix scans skip it.
func (idx *Index) Remove(tx *store.WriteTxn, property, value string, id entity.NodeID) error {
	k := key(property, value)
	ids, err := idx.readSet(tx, k)
	if err != nil {
		if hyberr.KindOf(err) == hyberr.NotFound {
			return nil
		}
		return err
	}
	pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if pos >= len(ids) || ids[pos] != id {
		return nil // not present, no-op
	}
	ids = append(ids[:pos], ids[pos+1:]...)
	if len(ids) == 0 {
		return tx.Delete(store.TableStructIndex, k)
	}
	return idx.writeSet(tx, k, ids)
}

// Lookup returns the sorted id set for an exact property=value match.
// Operators other than equality are a caller concern; Query rejects them
// with InvalidQuery before reaching here.
func Lookup(tx interface {
	Get(table string, key []byte) (store.Borrowed, error)
}, property, value string) ([]entity.NodeID, error) {
	b, err := tx.Get(store.TableStructIndex, key(property, value))
	if hyberr.KindOf(err) == hyberr.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []entity.NodeID
	if err := json.Unmarshal(b.Bytes, &ids); err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "structidx.Lookup", err)
	}
	return ids, nil
}

// Values enumerates every distinct value seen for a property via prefix
// scan, for enumeration tooling.
func Values(tx interface {
	ScanPrefix(table string, prefix []byte, fn func(key []byte, val store.Borrowed) error) error
}, property string) ([]string, error) {
	pfx := prefix(property)
	var values []string
	err := tx.ScanPrefix(store.TableStructIndex, pfx, func(k []byte, _ store.Borrowed) error {
		values = append(values, string(bytes.TrimPrefix(k, pfx)))
		return nil
	})
	return values, err
}

func (idx *Index) readSet(tx *store.WriteTxn, k []byte) ([]entity.NodeID, error) {
	b, err := tx.Get(store.TableStructIndex, k)
	if err != nil {
		return nil, err
	}
	var ids []entity.NodeID
	if err := json.Unmarshal(b.Bytes, &ids); err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "structidx.readSet", err)
	}
	return ids, nil
}

func (idx *Index) writeSet(tx *store.WriteTxn, k []byte, ids []entity.NodeID) error {
	buf, err := json.Marshal(ids)
	if err != nil {
		return hyberr.Wrap(hyberr.Serialization, "structidx.writeSet", err)
	}
	return tx.Put(store.TableStructIndex, k, buf)
}

// HashIntersect intersects any number of NodeId sets. The smallest set
// drives iteration; the rest are membership-tested via an xxhash-keyed set,
// avoiding the O(n*m) naive pairwise scan for large candidate sets.
func HashIntersect(sets ...[]entity.NodeID) []entity.NodeID {
	if len(sets) == 0 {
		return nil
	}
	smallestIdx := 0
	for i, s := range sets {
		if len(s) < len(sets[smallestIdx]) {
			smallestIdx = i
		}
	}
	smallest := sets[smallestIdx]

	memberships := make([]map[uint64]struct{}, 0, len(sets)-1)
	for i, s := range sets {
		if i == smallestIdx {
			continue
		}
		m := make(map[uint64]struct{}, len(s))
		for _, id := range s {
			m[xxhash.Sum64String(string(id))] = struct{}{}
		}
		memberships = append(memberships, m)
	}

	var out []entity.NodeID
outer:
	for _, id := range smallest {
		h := xxhash.Sum64String(string(id))
		for _, m := range memberships {
			if _, ok := m[h]; !ok {
				continue outer
			}
		}
		out = append(out, id)
	}
	return out
}
