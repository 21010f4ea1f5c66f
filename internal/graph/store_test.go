package graph

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, batchSize int) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "test.db"), batchSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeFixture(t *testing.T, store *Store) {
	t.Helper()

	tw, err := store.NewTaxonWriter()
	require.NoError(t, err)
	taxa := []Taxon{
		{TaxID: 1, ScientificName: "root", Rank: "no rank"},
		{TaxID: 2759, ScientificName: "Eukaryota", Rank: "superkingdom"},
		{TaxID: 9605, ScientificName: "Homo", Rank: "genus"},
		{TaxID: 9606, ScientificName: "Homo sapiens", CommonName: "human", Rank: "species"},
	}
	for _, tx := range taxa {
		require.NoError(t, tw.Add(tx))
	}
	require.NoError(t, tw.Close())

	ew, err := store.NewEdgeWriter()
	require.NoError(t, err)
	require.NoError(t, ew.Add(2759, 1))
	require.NoError(t, ew.Add(9605, 2759))
	require.NoError(t, ew.Add(9606, 9605))
	require.NoError(t, ew.Close())
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t, 0)
	writeFixture(t, store)

	taxa, edges, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, 4, taxa)
	assert.Equal(t, 3, edges)

	f, err := store.LoadForest()
	require.NoError(t, err)
	assert.Equal(t, 4, f.Len())
	assert.Equal(t, 3, f.EdgeCount())

	human, ok := f.Node(9606)
	require.True(t, ok)
	assert.Equal(t, "Homo sapiens", human.ScientificName)
	assert.Equal(t, "human", human.CommonName)
	assert.Equal(t, "species", human.Rank)

	// Empty common name survives the NULL round trip.
	homo, ok := f.Node(9605)
	require.True(t, ok)
	assert.Equal(t, "", homo.CommonName)

	lineage, ok := f.Lineage(9606)
	require.True(t, ok)
	assert.Equal(t, 9606, lineage[0].TaxID)
	assert.Equal(t, 1, lineage[len(lineage)-1].TaxID)
}

func TestStore_BatchBoundary(t *testing.T) {
	// Batch size smaller than the row count forces mid-load commits.
	store := openTestStore(t, 2)

	tw, err := store.NewTaxonWriter()
	require.NoError(t, err)
	for i := 1; i <= 7; i++ {
		require.NoError(t, tw.Add(Taxon{TaxID: i, ScientificName: "t", Rank: "no rank"}))
	}
	require.NoError(t, tw.Close())

	ew, err := store.NewEdgeWriter()
	require.NoError(t, err)
	for i := 2; i <= 7; i++ {
		require.NoError(t, ew.Add(i, 1))
	}
	require.NoError(t, ew.Close())

	taxa, edges, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, 7, taxa)
	assert.Equal(t, 6, edges)
}

func TestStore_ClearThenRebuildConverges(t *testing.T) {
	store := openTestStore(t, 0)

	for run := 0; run < 2; run++ {
		require.NoError(t, store.Clear())
		writeFixture(t, store)
	}

	taxa, edges, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, 4, taxa)
	assert.Equal(t, 3, edges)
}

func TestStore_IsEmpty(t *testing.T) {
	store := openTestStore(t, 0)

	empty, err := store.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	writeFixture(t, store)
	empty, err = store.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestStore_OpenUnavailable(t *testing.T) {
	_, err := OpenStore(filepath.Join(t.TempDir(), "missing", "sub", "test.db"), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestStore_DuplicateEdgeSurvivesForValidator(t *testing.T) {
	store := openTestStore(t, 0)

	tw, err := store.NewTaxonWriter()
	require.NoError(t, err)
	require.NoError(t, tw.Add(Taxon{TaxID: 1, ScientificName: "a", Rank: "no rank"}))
	require.NoError(t, tw.Add(Taxon{TaxID: 2, ScientificName: "b", Rank: "no rank"}))
	require.NoError(t, tw.Add(Taxon{TaxID: 3, ScientificName: "c", Rank: "no rank"}))
	require.NoError(t, tw.Close())

	ew, err := store.NewEdgeWriter()
	require.NoError(t, err)
	require.NoError(t, ew.Add(3, 1))
	require.NoError(t, ew.Add(3, 2)) // second parent for the same child
	require.NoError(t, ew.Add(3, 1)) // exact duplicate, collapsed by the store
	require.NoError(t, ew.Close())

	f, err := store.LoadForest()
	require.NoError(t, err)
	require.Len(t, f.Dups(), 1)
	assert.Equal(t, 3, f.Dups()[0].Child)
}
