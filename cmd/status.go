package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/taxograph/internal/graph"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the state of the stored taxonomy graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }() // safe to ignore

		taxa, edges, err := store.Counts()
		if err != nil {
			return err
		}

		fmt.Printf("Database: %s\n", cfg.DatabasePath)
		if taxa == 0 {
			fmt.Println("Graph is empty; run `taxograph import` first.")
			return nil
		}

		forest, err := store.LoadForest()
		if err != nil {
			return err
		}
		report := graph.Validate(forest)

		fmt.Printf("%d taxa, %d edges, %d roots\n", taxa, edges, len(forest.Roots()))
		fmt.Println(report.Summary())
		return nil
	},
}
