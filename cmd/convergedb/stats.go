package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print vector index statistics for one (type, tier) instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := openCoordinator(cmd)
			if err != nil {
				return err
			}
			defer coord.Close()

			typ, tier := dbTypeAndTier(cmd)
			stats, err := coord.VectorStats(typ, tier)
			if err != nil {
				return err
			}
			fmt.Printf("total_vectors=%d segments=%d appendable=%d optimized=%d\n",
				stats.TotalVectors, stats.SegmentCount, stats.AppendableSegments, stats.OptimizedSegments)
			return nil
		},
	}
	addCommonFlags(cmd)
	return cmd
}
