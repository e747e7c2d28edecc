package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orneryd/convergedb/pkg/entity"
)

func newPathCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Find the shortest path between two nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			p, err := exec.FindShortestPath(context.Background(), entity.NodeID(start), entity.NodeID(end))
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Println("no path found")
				return nil
			}
			fmt.Printf("path (%d hops): %v\n", len(p.Edges), p.Nodes)
			return nil
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().StringVar(&start, "start", "", "start node id")
	cmd.Flags().StringVar(&end, "end", "", "end node id")
	return cmd
}
