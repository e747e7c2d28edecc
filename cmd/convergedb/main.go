// Package main provides the convergedb CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "convergedb",
		Short: "ConvergeDB - embedded hybrid structural/graph/vector database engine",
		Long: `ConvergeDB unifies structural property indexes, directed graph indexes,
and HNSW vector indexes over a shared transactional key-value substrate,
behind a single converged query pipeline.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("convergedb v%s (%s)\n", version, commit)
		},
	})
	rootCmd.AddCommand(newInsertCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newPathCmd())
	rootCmd.AddCommand(newStatsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
