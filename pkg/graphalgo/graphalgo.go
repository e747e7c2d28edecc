// Package graphalgo implements whole-graph diagnostics over the graph
// index: connected components (a BFS component sweep) and cycle detection
// (a DFS recursion-stack check). Both take the node-id universe from the
// caller since neither has a single anchor to traverse from.
package graphalgo

import (
	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/graphidx"
	"github.com/orneryd/convergedb/pkg/store"
)

// ConnectedComponents partitions nodes into weakly-connected components,
// treating edges as undirected (Both direction).
func ConnectedComponents(tx *store.ReadTxn, nodeIDs []entity.NodeID) ([][]entity.NodeID, error) {
	visited := make(map[entity.NodeID]struct{}, len(nodeIDs))
	var components [][]entity.NodeID

	for _, start := range nodeIDs {
		if _, ok := visited[start]; ok {
			continue
		}

		component := []entity.NodeID{start}
		visited[start] = struct{}{}
		queue := []entity.NodeID{start}

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			positions, err := graphidx.Neighbors(tx, current, graphidx.Both, "")
			if err != nil {
				return nil, err
			}
			for _, p := range positions {
				if _, ok := visited[p.Endpoint]; ok {
					continue
				}
				visited[p.Endpoint] = struct{}{}
				component = append(component, p.Endpoint)
				queue = append(queue, p.Endpoint)
			}
		}

		components = append(components, component)
	}

	return components, nil
}

// HasCycle reports whether the directed graph restricted to nodeIDs
// contains a cycle, via DFS with a recursion-stack set.
func HasCycle(tx *store.ReadTxn, nodeIDs []entity.NodeID) (bool, error) {
	visited := make(map[entity.NodeID]struct{}, len(nodeIDs))
	onStack := make(map[entity.NodeID]struct{})

	for _, start := range nodeIDs {
		if _, ok := visited[start]; ok {
			continue
		}
		cyclic, err := hasCycleFrom(tx, start, visited, onStack)
		if err != nil {
			return false, err
		}
		if cyclic {
			return true, nil
		}
	}
	return false, nil
}

func hasCycleFrom(tx *store.ReadTxn, node entity.NodeID, visited, onStack map[entity.NodeID]struct{}) (bool, error) {
	visited[node] = struct{}{}
	onStack[node] = struct{}{}

	positions, err := graphidx.Neighbors(tx, node, graphidx.Out, "")
	if err != nil {
		return false, err
	}
	for _, p := range positions {
		if _, ok := visited[p.Endpoint]; !ok {
			cyclic, err := hasCycleFrom(tx, p.Endpoint, visited, onStack)
			if err != nil {
				return false, err
			}
			if cyclic {
				return true, nil
			}
		} else if _, ok := onStack[p.Endpoint]; ok {
			return true, nil
		}
	}

	delete(onStack, node)
	return false, nil
}
