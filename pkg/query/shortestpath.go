package query

import (
	"context"

	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/graphidx"
	"github.com/orneryd/convergedb/pkg/store"
)

// Path is the result of FindShortestPath: the node sequence from start to
// end inclusive, and the edge id taken between each consecutive pair.
type Path struct {
	Nodes []entity.NodeID
	Edges []entity.EdgeID
}

// FindShortestPath runs BFS forward from start, reconstructing the path
// via parent pointers once end is reached. Returns (nil, nil) if
// disconnected.
func (ex *Executor) FindShortestPath(ctx context.Context, start, end entity.NodeID) (*Path, error) {
	if start == end {
		return &Path{Nodes: []entity.NodeID{start}}, nil
	}

	type parent struct {
		node entity.NodeID
		edge entity.EdgeID
	}
	parents := map[entity.NodeID]parent{start: {}}
	frontier := []entity.NodeID{start}

	var found bool
	err := ex.kv.View(func(tx *store.ReadTxn) error {
		for len(frontier) > 0 && !found {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var next []entity.NodeID
			for _, node := range frontier {
				positions, err := graphidx.Neighbors(tx, node, graphidx.Out, "")
				if err != nil {
					return err
				}
				for _, p := range positions {
					if _, seen := parents[p.Endpoint]; seen {
						continue
					}
					parents[p.Endpoint] = parent{node: node, edge: p.EdgeID}
					if p.Endpoint == end {
						found = true
						break
					}
					next = append(next, p.Endpoint)
				}
				if found {
					break
				}
			}
			frontier = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var nodes []entity.NodeID
	var edges []entity.EdgeID
	cur := end
	for cur != start {
		p := parents[cur]
		nodes = append([]entity.NodeID{cur}, nodes...)
		edges = append([]entity.EdgeID{p.edge}, edges...)
		cur = p.node
	}
	nodes = append([]entity.NodeID{start}, nodes...)

	return &Path{Nodes: nodes, Edges: edges}, nil
}
