package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/taxograph/internal/graph"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run integrity checks against the stored graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }() // safe to ignore

		forest, err := store.LoadForest()
		if err != nil {
			return err
		}

		report := graph.Validate(forest)
		fmt.Printf("%d taxa, %d edges, %d roots\n",
			forest.Len(), forest.EdgeCount(), len(forest.Roots()))
		fmt.Println(report.Summary())

		printOffenders := func(label string, taxids []int) {
			if len(taxids) == 0 {
				return
			}
			max := len(taxids)
			if max > 20 {
				max = 20
			}
			fmt.Printf("  %s: %v", label, taxids[:max])
			if len(taxids) > max {
				fmt.Printf(" ... and %d more", len(taxids)-max)
			}
			fmt.Println()
		}
		printOffenders("on cycles", report.Cycles)
		printOffenders("unreachable", report.Unreachable)
		for i, d := range report.MultiParent {
			if i >= 20 {
				fmt.Printf("  ... and %d more multi-parent children\n", len(report.MultiParent)-i)
				break
			}
			fmt.Printf("  child %d has parents %d and %d\n", d.Child, d.Kept, d.Extra)
		}

		if !report.OK() {
			return fmt.Errorf("integrity check failed")
		}
		return nil
	},
}
