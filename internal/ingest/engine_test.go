package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/taxograph/internal/graph"
)

func nodeLine(taxid, parent int, rank string) string {
	return fmt.Sprintf("%d\t|\t%d\t|\t%s\t|\n", taxid, parent, rank)
}

func nameLine(taxid int, name, class string) string {
	return fmt.Sprintf("%d\t|\t%s\t|\t\t|\t%s\t|\n", taxid, name, class)
}

// fixtureNodes is a small mammalian subtree plus one node without a name row.
func fixtureNodes() string {
	var b strings.Builder
	b.WriteString(nodeLine(1, 1, "no rank")) // self-parent root
	b.WriteString(nodeLine(2759, 1, "superkingdom"))
	b.WriteString(nodeLine(33208, 2759, "kingdom"))
	b.WriteString(nodeLine(7711, 33208, "phylum"))
	b.WriteString(nodeLine(40674, 7711, "class"))
	b.WriteString(nodeLine(1437010, 40674, "superorder"))
	b.WriteString(nodeLine(9443, 1437010, "order"))
	b.WriteString(nodeLine(9604, 9443, "family"))
	b.WriteString(nodeLine(9605, 9604, "genus"))
	b.WriteString(nodeLine(9606, 9605, "species"))
	b.WriteString(nodeLine(33554, 1437010, "order"))
	b.WriteString(nodeLine(9681, 33554, "family"))
	b.WriteString(nodeLine(9682, 9681, "genus"))
	b.WriteString(nodeLine(9685, 9682, "species"))
	b.WriteString(nodeLine(7777, 1, "no rank")) // no name row: synthesized name
	return b.String()
}

func fixtureNames() string {
	var b strings.Builder
	b.WriteString(nameLine(1, "root", "scientific name"))
	b.WriteString(nameLine(2759, "Eukaryota", "scientific name"))
	b.WriteString(nameLine(33208, "Metazoa", "scientific name"))
	b.WriteString(nameLine(7711, "Chordata", "scientific name"))
	b.WriteString(nameLine(40674, "Mammalia", "scientific name"))
	b.WriteString(nameLine(40674, "mammals", "common name"))
	b.WriteString(nameLine(1437010, "Boreoeutheria", "scientific name"))
	b.WriteString(nameLine(9443, "Primates", "scientific name"))
	b.WriteString(nameLine(9604, "Hominidae", "scientific name"))
	b.WriteString(nameLine(9605, "Homo", "scientific name"))
	b.WriteString(nameLine(9606, "Homo sapiens", "scientific name"))
	b.WriteString(nameLine(9606, "human", "common name"))
	b.WriteString(nameLine(33554, "Carnivora", "scientific name"))
	b.WriteString(nameLine(9681, "Felidae", "scientific name"))
	b.WriteString(nameLine(9682, "Felis", "scientific name"))
	b.WriteString(nameLine(9685, "Felis catus", "scientific name"))
	b.WriteString(nameLine(9685, "domestic cat", "common name"))
	return b.String()
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := graph.OpenStore(filepath.Join(t.TempDir(), "test.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewEngine(store, graph.NewHotSwap())
}

func TestEngine_Run(t *testing.T) {
	eng := newTestEngine(t)

	res, err := eng.Run(context.Background(),
		strings.NewReader(fixtureNodes()), strings.NewReader(fixtureNames()))
	require.NoError(t, err)

	assert.Equal(t, 15, res.Taxa)
	assert.Equal(t, 14, res.Edges)
	assert.Equal(t, 0, res.NodesSkipped)
	assert.True(t, res.Report.OK(), res.Report.Summary())
	require.True(t, eng.Swap.Ready())

	f := eng.Swap.Current()
	lineage, ok := f.Lineage(9606)
	require.True(t, ok)
	assert.Equal(t, 9606, lineage[0].TaxID)
	assert.Equal(t, "Homo sapiens", lineage[0].ScientificName)
	assert.Equal(t, "species", lineage[0].Rank)
	assert.Equal(t, 1, lineage[len(lineage)-1].TaxID)

	// Node without a names row gets the synthesized name.
	unknown, ok := f.Node(7777)
	require.True(t, ok)
	assert.Equal(t, "Unknown_7777", unknown.ScientificName)
}

func TestEngine_RunIsIdempotent(t *testing.T) {
	eng := newTestEngine(t)

	res1, err := eng.Run(context.Background(),
		strings.NewReader(fixtureNodes()), strings.NewReader(fixtureNames()))
	require.NoError(t, err)
	lineage1, err2 := lineageNames(eng.Swap.Current(), 9685)
	require.NoError(t, err2)

	res2, err := eng.Run(context.Background(),
		strings.NewReader(fixtureNodes()), strings.NewReader(fixtureNames()))
	require.NoError(t, err)
	lineage2, err2 := lineageNames(eng.Swap.Current(), 9685)
	require.NoError(t, err2)

	assert.Equal(t, res1.Taxa, res2.Taxa)
	assert.Equal(t, res1.Edges, res2.Edges)
	assert.Equal(t, lineage1, lineage2)
}

func lineageNames(f *graph.Forest, taxid int) ([]string, error) {
	chain, ok := f.Lineage(taxid)
	if !ok {
		return nil, errors.New("not found")
	}
	names := make([]string, len(chain))
	for i := range chain {
		names[i] = chain[i].ScientificName
	}
	return names, nil
}

func TestEngine_RunSkipsMalformedRows(t *testing.T) {
	eng := newTestEngine(t)

	nodes := fixtureNodes() +
		"garbage line without separators\n" +
		"xyz\t|\t1\t|\tspecies\t|\n"
	names := fixtureNames() + "bad\t|\trow\t|\n"

	res, err := eng.Run(context.Background(),
		strings.NewReader(nodes), strings.NewReader(names))
	require.NoError(t, err)
	assert.Equal(t, 15, res.Taxa)
	assert.Equal(t, 2, res.NodesSkipped)
	assert.Equal(t, 1, res.NamesSkipped)
}

func TestEngine_RunCancelled(t *testing.T) {
	eng := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Run(ctx,
		strings.NewReader(fixtureNodes()), strings.NewReader(fixtureNames()))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, eng.Swap.Ready())

	// A cancelled run leaves the engine retryable.
	res, err := eng.Run(context.Background(),
		strings.NewReader(fixtureNodes()), strings.NewReader(fixtureNames()))
	require.NoError(t, err)
	assert.Equal(t, 15, res.Taxa)
	assert.True(t, eng.Swap.Ready())
}

func TestEngine_RunFiles(t *testing.T) {
	eng := newTestEngine(t)

	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "nodes.dmp")
	namesPath := filepath.Join(dir, "names.dmp")
	require.NoError(t, os.WriteFile(nodesPath, []byte(fixtureNodes()), 0o644))
	require.NoError(t, os.WriteFile(namesPath, []byte(fixtureNames()), 0o644))

	res, err := eng.RunFiles(context.Background(), nodesPath, namesPath)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Taxa)
}

func TestEngine_Launch(t *testing.T) {
	eng := newTestEngine(t)

	// Gate the nodes stream so the import stays in flight until released.
	gateR, gateW := io.Pipe()
	open := func() (io.ReadCloser, io.ReadCloser, error) {
		return gateR, io.NopCloser(strings.NewReader(fixtureNames())), nil
	}

	require.True(t, eng.Launch(context.Background(), open))
	assert.True(t, eng.Status.Snapshot().Running)

	// A second import while one is running is rejected.
	assert.False(t, eng.Launch(context.Background(), open))

	_, err := gateW.Write([]byte(fixtureNodes()))
	require.NoError(t, err)
	require.NoError(t, gateW.Close())

	require.Eventually(t, func() bool {
		return eng.Status.Snapshot().Complete
	}, 5*time.Second, 10*time.Millisecond)

	st := eng.Status.Snapshot()
	assert.False(t, st.Running)
	assert.Empty(t, st.Error)
	assert.True(t, eng.Swap.Ready())
}

func TestEngine_LaunchOpenFailure(t *testing.T) {
	eng := newTestEngine(t)

	open := func() (io.ReadCloser, io.ReadCloser, error) {
		return nil, nil, errors.New("dump not downloaded")
	}
	require.True(t, eng.Launch(context.Background(), open))

	require.Eventually(t, func() bool {
		return !eng.Status.Snapshot().Running
	}, 5*time.Second, 10*time.Millisecond)

	st := eng.Status.Snapshot()
	assert.False(t, st.Complete)
	assert.Contains(t, st.Error, "dump not downloaded")

	// A failed run permits a fresh retry.
	assert.True(t, eng.Status.Begin())
}

func TestStatus_Lifecycle(t *testing.T) {
	s := NewStatus()
	assert.Equal(t, false, s.Snapshot().Running)

	require.True(t, s.Begin())
	require.False(t, s.Begin())
	assert.True(t, s.Running())

	s.Finish(nil)
	st := s.Snapshot()
	assert.False(t, st.Running)
	assert.True(t, st.Complete)
	assert.Empty(t, st.Error)

	// A new run resets the previous outcome.
	require.True(t, s.Begin())
	assert.False(t, s.Snapshot().Complete)
	s.Finish(errors.New("boom"))
	st = s.Snapshot()
	assert.False(t, st.Complete)
	assert.Equal(t, "boom", st.Error)
}
