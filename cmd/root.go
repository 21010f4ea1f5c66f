// Package cmd is the operator CLI: full imports, integrity checks, and the
// lineage/search/compare queries against an already-loaded graph. It is a
// consumer of the engine the same way the excluded HTTP layer would be.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/taxograph/internal/config"
	"github.com/agentic-research/taxograph/internal/graph"
	"github.com/agentic-research/taxograph/internal/ingest"
	"github.com/agentic-research/taxograph/internal/query"
)

var (
	cfgPath string
	dbPath  string
	cfg     *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to taxograph.yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the graph database (overrides config)")
}

var rootCmd = &cobra.Command{
	Use:           "taxograph",
	Short:         "Taxograph: taxonomic lineage graph engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}
		return nil
	},
}

// openStore opens the configured graph database.
func openStore() (*graph.Store, error) {
	return graph.OpenStore(cfg.DatabasePath, cfg.BatchSize)
}

// openQueryEngine loads the stored forest and wires a query engine over it.
func openQueryEngine() (*query.Engine, *graph.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	forest, err := store.LoadForest()
	if err != nil {
		_ = store.Close() // ignore error
		return nil, nil, err
	}
	if forest.Len() == 0 {
		_ = store.Close() // ignore error
		return nil, nil, fmt.Errorf("graph at %s is empty, run `taxograph import` first", cfg.DatabasePath)
	}

	swap := graph.NewHotSwap()
	swap.Swap(forest)
	eng := query.NewEngine(swap, ingest.NewEngine(store, swap), cfg.SampleTaxIDs)
	return eng, store, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
