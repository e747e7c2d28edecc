package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/graphidx"
	"github.com/orneryd/convergedb/pkg/query"
)

func newQueryCmd() *cobra.Command {
	var (
		filters      []string
		graphStart   string
		graphDepth   int
		graphDir     string
		edgeType     string
		semanticFile string
		threshold    float64
		hasThreshold bool
		limit        int
		offset       int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a converged query (structural ∩ graph, optional semantic rerank)",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := query.ConvergedQuery{Limit: limit, Offset: offset}

			for _, f := range filters {
				parts := strings.SplitN(f, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid --filter %q, want property=value", f)
				}
				q.StructuralFilters = append(q.StructuralFilters, query.StructuralFilter{Property: parts[0], Value: parts[1]})
			}

			if graphStart != "" {
				dir, err := parseDirection(graphDir)
				if err != nil {
					return err
				}
				q.GraphFilter = &query.GraphFilter{
					StartNodeID: entity.NodeID(graphStart),
					Depth:       graphDepth,
					Direction:   dir,
					EdgeType:    edgeType,
				}
			}

			if semanticFile != "" {
				raw, err := os.ReadFile(semanticFile)
				if err != nil {
					return err
				}
				var vec []float32
				if err := json.Unmarshal(raw, &vec); err != nil {
					return fmt.Errorf("parsing semantic vector: %w", err)
				}
				sq := &query.SemanticQuery{Vector: vec}
				if hasThreshold {
					t := float32(threshold)
					sq.SimilarityThreshold = &t
				}
				q.Semantic = sq
			}

			coord, err := openCoordinator(cmd)
			if err != nil {
				return err
			}
			defer coord.Close()

			typ, tier := dbTypeAndTier(cmd)
			_, exec, err := coord.Open(typ, tier)
			if err != nil {
				return err
			}

			rows, err := exec.Execute(context.Background(), q)
			if err != nil {
				return err
			}
			return printResults(rows)
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "structural filter property=value (repeatable, AND-combined)")
	cmd.Flags().StringVar(&graphStart, "graph-start", "", "graph filter anchor node id")
	cmd.Flags().IntVar(&graphDepth, "graph-depth", 1, "graph filter BFS depth")
	cmd.Flags().StringVar(&graphDir, "graph-dir", "out", "graph filter direction: out, in, both")
	cmd.Flags().StringVar(&edgeType, "edge-type", "", "graph filter edge type (empty: any)")
	cmd.Flags().StringVar(&semanticFile, "semantic-file", "", "JSON float array file for semantic rerank")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold (requires --with-threshold)")
	cmd.Flags().BoolVar(&hasThreshold, "with-threshold", false, "apply --threshold")
	cmd.Flags().IntVar(&limit, "limit", 10, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func parseDirection(s string) (graphidx.Direction, error) {
	switch strings.ToLower(s) {
	case "out":
		return graphidx.Out, nil
	case "in":
		return graphidx.In, nil
	case "both":
		return graphidx.Both, nil
	default:
		return 0, fmt.Errorf("invalid --graph-dir %q, want out, in, or both", s)
	}
}

func printResults(rows []query.Result) error {
	type row struct {
		ID         entity.NodeID `json:"id"`
		Kind       string        `json:"kind"`
		Similarity *float32      `json:"similarity,omitempty"`
	}
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		out = append(out, row{ID: r.Node.ID(), Kind: r.Node.Kind.String(), Similarity: r.Similarity})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
