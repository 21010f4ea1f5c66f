package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/taxograph/api"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum results (default from config)")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(lineageCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(sampleCmd)
}

func printSpecies(list []api.Species) {
	for _, sp := range list {
		line := fmt.Sprintf("%8d  %-12s %s", sp.TaxID, sp.Rank, sp.ScientificName)
		if sp.CommonName != "" {
			line += fmt.Sprintf(" (%s)", sp.CommonName)
		}
		fmt.Println(line)
	}
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search species by scientific or common name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, store, err := openQueryEngine()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }() // safe to ignore

		limit := searchLimit
		if limit <= 0 {
			limit = cfg.SearchLimit
		}
		results, err := eng.Search(strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		printSpecies(results)
		return nil
	},
}

var lineageCmd = &cobra.Command{
	Use:   "lineage <taxid>",
	Short: "Print the ancestor chain of a taxon, most specific first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taxid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid taxid %q", args[0])
		}

		eng, store, err := openQueryEngine()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }() // safe to ignore

		lineage, err := eng.Lineage(taxid)
		if err != nil {
			return err
		}
		printSpecies(lineage)
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <taxid1> <taxid2>",
	Short: "Compare two lineages and report their most recent common ancestor",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid taxid %q", args[0])
		}
		b, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid taxid %q", args[1])
		}

		eng, store, err := openQueryEngine()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }() // safe to ignore

		cmp, err := eng.Compare(a, b)
		if err != nil {
			return err
		}

		printSide := func(s api.ComparedSpecies) {
			fmt.Printf("%s (taxid %d):\n", s.DisplayName, s.TaxID)
			for _, entry := range s.Lineage {
				marker := " "
				if entry.Shared {
					marker = "*"
				}
				fmt.Printf("  %s %8d  %-12s %s\n", marker, entry.TaxID, entry.Rank, entry.ScientificName)
			}
		}
		printSide(cmp.Species1)
		printSide(cmp.Species2)

		if mrca := cmp.Comparison.CommonAncestor; mrca != nil {
			fmt.Printf("MRCA: %s (taxid %d, %s), %d common ancestors\n",
				mrca.Name, mrca.TaxID, mrca.Rank, cmp.Comparison.TotalCommonAncestors)
		} else {
			fmt.Println("No common ancestor (disjoint forests).")
		}
		return nil
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "List the curated reference species",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, store, err := openQueryEngine()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }() // safe to ignore

		results, err := eng.Sample()
		if err != nil {
			return err
		}
		printSpecies(results)
		return nil
	},
}
