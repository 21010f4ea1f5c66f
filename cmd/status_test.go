package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentic-research/taxograph/internal/graph"
)

func TestStatusCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "graph.db")

	t.Run("empty graph", func(t *testing.T) {
		rootCmd.SetArgs([]string{"status", "--db", db})
		require.NoError(t, rootCmd.Execute())
	})

	store, err := graph.OpenStore(db, 4)
	require.NoError(t, err)
	tw, err := store.NewTaxonWriter()
	require.NoError(t, err)
	require.NoError(t, tw.Add(graph.Taxon{TaxID: 1, ScientificName: "root", Rank: "no rank"}))
	require.NoError(t, tw.Add(graph.Taxon{TaxID: 9606, ScientificName: "Homo sapiens", CommonName: "human", Rank: "species"}))
	require.NoError(t, tw.Close())
	ew, err := store.NewEdgeWriter()
	require.NoError(t, err)
	require.NoError(t, ew.Add(9606, 1))
	require.NoError(t, ew.Close())
	require.NoError(t, store.Close())

	t.Run("loaded graph", func(t *testing.T) {
		rootCmd.SetArgs([]string{"status", "--db", db})
		require.NoError(t, rootCmd.Execute())
	})
}
