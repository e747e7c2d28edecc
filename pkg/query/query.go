// Package query implements the converged query pipeline: structural ∩
// graph candidate generation, optional semantic rerank, and pagination.
package query

import (
	"context"
	"sort"

	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/graphidx"
	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/orneryd/convergedb/pkg/store"
	"github.com/orneryd/convergedb/pkg/structidx"
	"github.com/orneryd/convergedb/pkg/vector"
)

// StructuralFilter is an AND-combined equality filter. Operator exists for
// forward compatibility with range queries; any value other than "", "=" or
// "Equals" fails with InvalidQuery today.
type StructuralFilter struct {
	Property string
	Operator string
	Value    string
}

// GraphFilter runs a bounded BFS from StartNodeID.
type GraphFilter struct {
	StartNodeID entity.NodeID
	Depth       int
	Direction   graphidx.Direction
	EdgeType    string
}

// SemanticQuery restricts Stage 2's vector search and rerank.
type SemanticQuery struct {
	Vector              []float32
	SimilarityThreshold *float32
}

// ConvergedQuery is the executor's sole input shape.
type ConvergedQuery struct {
	StructuralFilters []StructuralFilter
	GraphFilter       *GraphFilter
	Semantic          *SemanticQuery
	Limit             int
	Offset            int
}

// Result is one row of a query response: the materialized node and, when
// a semantic query ran, its similarity score.
type Result struct {
	Node       *entity.Node
	Similarity *float32
}

// Executor runs ConvergedQuery against one database's indexes.
type Executor struct {
	kv       *store.Store
	entities *entity.Store
	vectors  *vector.Index
}

func NewExecutor(kv *store.Store, entities *entity.Store, vectors *vector.Index) *Executor {
	return &Executor{kv: kv, entities: entities, vectors: vectors}
}

// Execute runs the two-stage pipeline: candidate generation, then either a
// semantic rerank over the candidates or a plain fetch.
func (ex *Executor) Execute(ctx context.Context, q ConvergedQuery) ([]Result, error) {
	if len(q.StructuralFilters) == 0 && q.GraphFilter == nil {
		return nil, hyberr.New(hyberr.InvalidQuery, "query.Execute", "query must have at least one structural or graph filter")
	}

	candidates, err := ex.stage1(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil // empty structural set short-circuits before any graph work
	}

	var rows []Result
	if q.Semantic != nil {
		rows, err = ex.stage2Rerank(ctx, q, candidates)
	} else {
		rows, err = ex.stage2Fetch(candidates)
	}
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return paginate(rows, q.Offset, q.Limit), nil
}

// stage1 builds the candidate set: structural ∩ graph, with None ∩ S = S.
func (ex *Executor) stage1(ctx context.Context, q ConvergedQuery) (map[entity.NodeID]struct{}, error) {
	var structSet []entity.NodeID
	var haveStruct bool

	var graphSet map[entity.NodeID]struct{}
	var haveGraph bool

	err := ex.kv.View(func(tx *store.ReadTxn) error {
		if len(q.StructuralFilters) > 0 {
			haveStruct = true
			sets := make([][]entity.NodeID, 0, len(q.StructuralFilters))
			for _, f := range q.StructuralFilters {
				if f.Operator != "" && f.Operator != "=" && f.Operator != "Equals" {
					return hyberr.Newf(hyberr.InvalidQuery, "query.stage1", "unsupported operator %q", f.Operator)
				}
				ids, err := structidx.Lookup(tx, f.Property, f.Value)
				if err != nil {
					return err
				}
				sets = append(sets, ids)
			}
			if len(sets) == 1 {
				structSet = sets[0]
			} else {
				structSet = structidx.HashIntersect(sets...)
			}
			if len(structSet) == 0 {
				return nil // early exit: empty structural set, no graph work
			}
		}

		if q.GraphFilter != nil {
			haveGraph = true
			var err error
			graphSet, err = ex.bfs(ctx, tx, q.GraphFilter)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case haveStruct && len(structSet) == 0:
		return map[entity.NodeID]struct{}{}, nil
	case haveStruct && haveGraph:
		out := make(map[entity.NodeID]struct{})
		for _, id := range structSet {
			if _, ok := graphSet[id]; ok {
				out[id] = struct{}{}
			}
		}
		return out, nil
	case haveStruct:
		out := make(map[entity.NodeID]struct{}, len(structSet))
		for _, id := range structSet {
			out[id] = struct{}{}
		}
		return out, nil
	case haveGraph:
		return graphSet, nil
	default:
		return map[entity.NodeID]struct{}{}, nil
	}
}

// bfs runs a bounded breadth-first traversal from gf.StartNodeID,
// checking ctx at every frontier advance.
func (ex *Executor) bfs(ctx context.Context, tx *store.ReadTxn, gf *GraphFilter) (map[entity.NodeID]struct{}, error) {
	visited := map[entity.NodeID]struct{}{gf.StartNodeID: {}}
	frontier := []entity.NodeID{gf.StartNodeID}

	for hop := 0; hop < gf.Depth && len(frontier) > 0; hop++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var next []entity.NodeID
		for _, node := range frontier {
			positions, err := graphidx.Neighbors(tx, node, gf.Direction, gf.EdgeType)
			if err != nil {
				return nil, hyberr.Wrap(hyberr.Graph, "query.bfs", err)
			}
			for _, p := range positions {
				if _, ok := visited[p.Endpoint]; !ok {
					visited[p.Endpoint] = struct{}{}
					next = append(next, p.Endpoint)
				}
			}
		}
		frontier = next
	}
	return visited, nil
}

// stage2Fetch materializes every candidate directly when no semantic query
// is present.
func (ex *Executor) stage2Fetch(candidates map[entity.NodeID]struct{}) ([]Result, error) {
	ids := make([]entity.NodeID, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] }) // unspecified but stable order

	rows := make([]Result, 0, len(ids))
	for _, id := range ids {
		n, err := ex.entities.GetNode(id)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Result{Node: n})
	}
	return rows, nil
}

// stage2Rerank calls vector search, drops hits outside the candidate set
// or below the similarity threshold, then materializes survivors.
func (ex *Executor) stage2Rerank(ctx context.Context, q ConvergedQuery, candidates map[entity.NodeID]struct{}) ([]Result, error) {
	want := q.Limit + q.Offset
	if want <= 0 {
		want = len(candidates)
	}

	hits, err := ex.vectors.Search(ctx, q.Semantic.Vector, want*4+len(candidates), nil)
	if err != nil {
		return nil, err
	}

	rows := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if q.Semantic.SimilarityThreshold != nil && hit.Score < *q.Semantic.SimilarityThreshold {
			continue
		}
		nodeID, ok, err := ex.ownerOf(hit.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, ok := candidates[nodeID]; !ok {
			continue
		}
		n, err := ex.entities.GetNode(nodeID)
		if err != nil {
			return nil, err
		}
		score := hit.Score
		rows = append(rows, Result{Node: n, Similarity: &score})
	}
	return rows, nil
}

// ownerOf resolves an embedding id to the node that references it, via the
// structural index's embedding_id equality entries (every node with a
// non-empty EmbeddingID is indexed on that property, see
// entity.Node.StructuralFields).
func (ex *Executor) ownerOf(embeddingID string) (entity.NodeID, bool, error) {
	var owner entity.NodeID
	var found bool
	err := ex.kv.View(func(tx *store.ReadTxn) error {
		ids, err := structidx.Lookup(tx, "embedding_id", embeddingID)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			owner = ids[0]
			found = true
		}
		return nil
	})
	return owner, found, err
}

// paginate applies skip(offset).take(limit); offset past the end yields
// an empty result, never an error.
func paginate(rows []Result, offset, limit int) []Result {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
