// Package graphidx implements the two directed graph indexes:
// out:node -> [(EdgeId, target)] and in:node -> [(EdgeId, source)], each
// kept sorted by EdgeId for O(log n) point operations. Values are ordered
// position lists carrying the endpoint and edge type alongside the edge id,
// so traversal never has to materialize the edge record itself.
package graphidx

import (
	"encoding/json"
	"sort"

	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/orneryd/convergedb/pkg/store"
)

// Direction selects which side(s) of the graph index a traversal reads.
type Direction int

const (
	Out Direction = iota
	In
	Both
)

// Position is one entry in a node's position list: the edge id plus the
// node at the other end.
type Position struct {
	EdgeID   entity.EdgeID `json:"edge_id"`
	Endpoint entity.NodeID `json:"endpoint"`
	EdgeType string        `json:"edge_type"`
}

type Index struct{}

func New() *Index { return &Index{} }

func outKey(node entity.NodeID) []byte { return tableKey("out", node) }
func inKey(node entity.NodeID) []byte  { return tableKey("in", node) }

func tableKey(side string, node entity.NodeID) []byte {
	k := make([]byte, 0, len(side)+1+len(node))
	k = append(k, side...)
	k = append(k, 0x00)
	k = append(k, node...)
	return k
}

// AddEdge inserts e into from's out: list and to's in: list in the same
// write transaction; failure on either side aborts both. Re-adding the
// same edge id is idempotent.
func (idx *Index) AddEdge(tx *store.WriteTxn, e *entity.Edge) error {
	if err := insertPosition(tx, store.TableGraphOut, outKey(e.From), Position{EdgeID: e.ID, Endpoint: e.To, EdgeType: e.EdgeType}); err != nil {
		return err
	}
	return insertPosition(tx, store.TableGraphIn, inKey(e.To), Position{EdgeID: e.ID, Endpoint: e.From, EdgeType: e.EdgeType})
}

// RemoveEdge deletes e from both sides. Removing an edge id not present is
// a no-op.
func (idx *Index) RemoveEdge(tx *store.WriteTxn, e *entity.Edge) error {
	if err := removePosition(tx, store.TableGraphOut, outKey(e.From), e.ID); err != nil {
		return err
	}
	return removePosition(tx, store.TableGraphIn, inKey(e.To), e.ID)
}

// RemoveNodeReferences strips every position entry anywhere in the graph
// index that names node as its endpoint, so a node delete leaves no
// dangling list entries. Node's own out:/in: keys are dropped outright;
// for each edge they held, the reciprocal entry in the other endpoint's
// list (which still names the now-deleted node) is also removed, so no
// list anywhere is left pointing at a node that no longer exists. It does
// not touch the edge records themselves (the caller already decided
// whether to cascade-delete edges).
func (idx *Index) RemoveNodeReferences(tx *store.WriteTxn, node entity.NodeID) error {
	outs, err := readPositions(tx, store.TableGraphOut, outKey(node))
	if err != nil && hyberr.KindOf(err) != hyberr.NotFound {
		return err
	}
	for _, p := range outs {
		if err := removePosition(tx, store.TableGraphIn, inKey(p.Endpoint), p.EdgeID); err != nil {
			return err
		}
	}

	ins, err := readPositions(tx, store.TableGraphIn, inKey(node))
	if err != nil && hyberr.KindOf(err) != hyberr.NotFound {
		return err
	}
	for _, p := range ins {
		if err := removePosition(tx, store.TableGraphOut, outKey(p.Endpoint), p.EdgeID); err != nil {
			return err
		}
	}

	if err := removeEndpoint(tx, store.TableGraphOut, outKey(node)); err != nil {
		return err
	}
	return removeEndpoint(tx, store.TableGraphIn, inKey(node))
}

func removeEndpoint(tx *store.WriteTxn, table string, key []byte) error {
	positions, err := readPositions(tx, table, key)
	if err != nil {
		if hyberr.KindOf(err) == hyberr.NotFound {
			return nil
		}
		return err
	}
	if len(positions) == 0 {
		return nil
	}
	return tx.Delete(table, key)
}

func insertPosition(tx *store.WriteTxn, table string, key []byte, p Position) error {
	positions, err := readPositions(tx, table, key)
	if err != nil && hyberr.KindOf(err) != hyberr.NotFound {
		return err
	}
	pos := sort.Search(len(positions), func(i int) bool { return positions[i].EdgeID >= p.EdgeID })
	if pos < len(positions) && positions[pos].EdgeID == p.EdgeID {
		return nil // idempotent re-add
	}
	positions = append(positions, Position{})
	copy(positions[pos+1:], positions[pos:])
	positions[pos] = p
	return writePositions(tx, table, key, positions)
}

func removePosition(tx *store.WriteTxn, table string, key []byte, id entity.EdgeID) error {
	positions, err := readPositions(tx, table, key)
	if err != nil {
		if hyberr.KindOf(err) == hyberr.NotFound {
			return nil
		}
		return err
	}
	pos := sort.Search(len(positions), func(i int) bool { return positions[i].EdgeID >= id })
	if pos >= len(positions) || positions[pos].EdgeID != id {
		return nil
	}
	positions = append(positions[:pos], positions[pos+1:]...)
	if len(positions) == 0 {
		return tx.Delete(table, key)
	}
	return writePositions(tx, table, key, positions)
}

func readPositions(tx *store.WriteTxn, table string, key []byte) ([]Position, error) {
	b, err := tx.Get(table, key)
	if err != nil {
		return nil, err
	}
	var positions []Position
	if err := json.Unmarshal(b.Bytes, &positions); err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "graphidx.readPositions", err)
	}
	return positions, nil
}

func writePositions(tx *store.WriteTxn, table string, key []byte, positions []Position) error {
	buf, err := json.Marshal(positions)
	if err != nil {
		return hyberr.Wrap(hyberr.Serialization, "graphidx.writePositions", err)
	}
	return tx.Put(table, key, buf)
}

// readOnlyTxn is the read surface shared by *store.WriteTxn and
// *store.ReadTxn, letting traversal read helpers run inside either a
// pooled read transaction or the current write transaction.
type readOnlyTxn interface {
	Get(table string, key []byte) (store.Borrowed, error)
}

func readPositionsRO(tx readOnlyTxn, table string, key []byte) ([]Position, error) {
	b, err := tx.Get(table, key)
	if hyberr.KindOf(err) == hyberr.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var positions []Position
	if err := json.Unmarshal(b.Bytes, &positions); err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "graphidx.readPositionsRO", err)
	}
	return positions, nil
}

// CountOutgoing returns the length of node's out: position list.
func CountOutgoing(tx readOnlyTxn, node entity.NodeID) (int, error) {
	positions, err := readPositionsRO(tx, store.TableGraphOut, outKey(node))
	if err != nil {
		return 0, err
	}
	return len(positions), nil
}

// CountIncoming returns the length of node's in: position list.
func CountIncoming(tx readOnlyTxn, node entity.NodeID) (int, error) {
	positions, err := readPositionsRO(tx, store.TableGraphIn, inKey(node))
	if err != nil {
		return 0, err
	}
	return len(positions), nil
}

// Neighbors returns node's neighbors in the given direction, filtered by
// edgeType when non-empty. Both unions the out and in sides, deduplicating
// by endpoint.
func Neighbors(tx readOnlyTxn, node entity.NodeID, dir Direction, edgeType string) ([]Position, error) {
	switch dir {
	case Out:
		return filterByType(readPositionsRO(tx, store.TableGraphOut, outKey(node)))(edgeType)
	case In:
		return filterByType(readPositionsRO(tx, store.TableGraphIn, inKey(node)))(edgeType)
	case Both:
		outs, err := readPositionsRO(tx, store.TableGraphOut, outKey(node))
		if err != nil {
			return nil, err
		}
		ins, err := readPositionsRO(tx, store.TableGraphIn, inKey(node))
		if err != nil {
			return nil, err
		}
		seen := make(map[entity.NodeID]struct{}, len(outs)+len(ins))
		var merged []Position
		for _, p := range append(outs, ins...) {
			if edgeType != "" && p.EdgeType != edgeType {
				continue
			}
			if _, ok := seen[p.Endpoint]; ok {
				continue
			}
			seen[p.Endpoint] = struct{}{}
			merged = append(merged, p)
		}
		return merged, nil
	default:
		return nil, hyberr.Newf(hyberr.InvalidOperation, "graphidx.Neighbors", "unknown direction %d", dir)
	}
}

func filterByType(positions []Position, err error) func(string) ([]Position, error) {
	return func(edgeType string) ([]Position, error) {
		if err != nil {
			return nil, err
		}
		if edgeType == "" {
			return positions, nil
		}
		filtered := make([]Position, 0, len(positions))
		for _, p := range positions {
			if p.EdgeType == edgeType {
				filtered = append(filtered, p)
			}
		}
		return filtered, nil
	}
}
