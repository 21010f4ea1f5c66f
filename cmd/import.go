package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/taxograph/internal/graph"
	"github.com/agentic-research/taxograph/internal/ingest"
)

var importArchive string

func init() {
	importCmd.Flags().StringVarP(&importArchive, "archive", "a", "",
		"Local taxdump.tar.gz to extract and load (instead of nodes/names files)")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import [nodes.dmp] [names.dmp]",
	Short: "Run a full clear-and-reload of the taxonomy graph",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodesPath, namesPath := cfg.NodesPath, cfg.NamesPath
		if len(args) == 2 {
			nodesPath, namesPath = args[0], args[1]
		} else if len(args) == 1 {
			return fmt.Errorf("need both nodes and names files, got one argument")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }() // safe to ignore

		engine := ingest.NewEngine(store, graph.NewHotSwap())

		var res *ingest.Result
		if importArchive != "" {
			fmt.Printf("Importing %s into %s...\n", importArchive, cfg.DatabasePath)
			res, err = engine.RunArchive(cmd.Context(), importArchive)
		} else {
			fmt.Printf("Importing %s + %s into %s...\n", nodesPath, namesPath, cfg.DatabasePath)
			res, err = engine.RunFiles(cmd.Context(), nodesPath, namesPath)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Loaded %d taxa, %d edges in %v (%d node rows skipped, %d name rows skipped).\n",
			res.Taxa, res.Edges, res.Elapsed, res.NodesSkipped, res.NamesSkipped)
		fmt.Println(res.Report.Summary())
		return nil
	},
}
