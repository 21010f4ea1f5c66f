// Package ingest drives a full taxonomy load: parse the two dump streams,
// clear the store, commit all nodes, then all edges, reload the forest,
// validate it, and swap it into service. One logical writer per run.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/taxograph/internal/graph"
	"github.com/agentic-research/taxograph/internal/taxdump"
)

// Engine owns the write side of the graph. Queries go through Swap, which
// only ever sees complete, validated forests.
type Engine struct {
	Store  *graph.Store
	Swap   *graph.HotSwap
	Status *Status
}

// NewEngine wires an engine around an open store.
func NewEngine(store *graph.Store, swap *graph.HotSwap) *Engine {
	return &Engine{Store: store, Swap: swap, Status: NewStatus()}
}

// Result summarizes one completed ingestion run.
type Result struct {
	Taxa         int
	Edges        int
	NodesSkipped int
	NamesSkipped int
	Report       *graph.Report
	Elapsed      time.Duration
}

// Run executes one full clear-and-reload from the two dump streams.
// The node phase is fully committed before the edge phase begins, so edge
// records never reference not-yet-created nodes regardless of forward
// references in the dump. Integrity violations are logged, not fatal: the
// loaded graph still serves, the report surfaces the defects.
func (e *Engine) Run(ctx context.Context, nodesR, namesR io.Reader) (*Result, error) {
	start := time.Now()

	var (
		nodes     map[int]taxdump.NodeRecord
		names     map[int]taxdump.NameRecord
		nodeStats *taxdump.Stats
		nameStats *taxdump.Stats
	)

	// The two streams are independent; parse them in parallel.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodes, nodeStats, err = taxdump.ParseNodes(nodesR)
		if err != nil {
			return fmt.Errorf("parse nodes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		names, nameStats, err = taxdump.ParseNames(namesR)
		if err != nil {
			return fmt.Errorf("parse names: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("ingest: parsed %d nodes (%d skipped), names for %d taxa (%d skipped)",
		len(nodes), nodeStats.Skipped, len(names), nameStats.Skipped)

	// Destructive-then-rebuild: prior graph goes away first.
	if err := e.Store.Clear(); err != nil {
		return nil, fmt.Errorf("clear store: %w", err)
	}

	// Node phase. Creation order is irrelevant; map iteration order is fine.
	tw, err := e.Store.NewTaxonWriter()
	if err != nil {
		return nil, err
	}
	for taxid, rec := range nodes {
		if err := ctx.Err(); err != nil {
			_ = tw.Close() // ignore error
			return nil, err
		}
		t := graph.Taxon{TaxID: taxid, Rank: rec.Rank}
		if n, ok := names[taxid]; ok {
			t.ScientificName = n.Scientific
			t.CommonName = n.Common
		}
		if t.ScientificName == "" {
			t.ScientificName = fmt.Sprintf("Unknown_%d", taxid)
		}
		if err := tw.Add(t); err != nil {
			_ = tw.Close() // ignore error
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("commit node phase: %w", err)
	}

	// Edge phase. Only starts once every node is committed.
	ew, err := e.Store.NewEdgeWriter()
	if err != nil {
		return nil, err
	}
	for taxid, rec := range nodes {
		if err := ctx.Err(); err != nil {
			_ = ew.Close() // ignore error
			return nil, err
		}
		if rec.Parent == 0 {
			continue // root
		}
		if err := ew.Add(taxid, rec.Parent); err != nil {
			_ = ew.Close() // ignore error
			return nil, err
		}
	}
	if err := ew.Close(); err != nil {
		return nil, fmt.Errorf("commit edge phase: %w", err)
	}

	forest, err := e.Store.LoadForest()
	if err != nil {
		return nil, fmt.Errorf("reload forest: %w", err)
	}

	report := graph.Validate(forest)
	if !report.OK() {
		log.Printf("ingest: %s", report.Summary())
	}

	if e.Swap != nil {
		e.Swap.Swap(forest)
	}

	res := &Result{
		Taxa:         forest.Len(),
		Edges:        forest.EdgeCount(),
		NodesSkipped: nodeStats.Skipped,
		NamesSkipped: nameStats.Skipped,
		Report:       report,
		Elapsed:      time.Since(start),
	}
	log.Printf("ingest: loaded %d taxa, %d edges in %v", res.Taxa, res.Edges, res.Elapsed)
	return res, nil
}

// RunFiles runs a full load from nodes.dmp and names.dmp on disk.
func (e *Engine) RunFiles(ctx context.Context, nodesPath, namesPath string) (*Result, error) {
	nf, err := os.Open(nodesPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", nodesPath, err)
	}
	defer func() { _ = nf.Close() }() // safe to ignore

	mf, err := os.Open(namesPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", namesPath, err)
	}
	defer func() { _ = mf.Close() }() // safe to ignore

	return e.Run(ctx, nf, mf)
}

// RunArchive extracts a local taxdump.tar.gz to a scratch dir and loads it.
func (e *Engine) RunArchive(ctx context.Context, archivePath string) (*Result, error) {
	dir, err := os.MkdirTemp("", "taxograph-dump-*")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }() // best-effort cleanup

	nodesPath, namesPath, err := taxdump.ExtractDump(archivePath, dir)
	if err != nil {
		return nil, err
	}
	return e.RunFiles(ctx, nodesPath, namesPath)
}

// Launch starts a run in the background, guarded by the status handle.
// Returns false if an import is already running. There is no cancellation
// of an in-flight run; a failed run records its error and the next Launch
// starts over from a full clear.
func (e *Engine) Launch(ctx context.Context, open func() (nodes, names io.ReadCloser, err error)) bool {
	if !e.Status.Begin() {
		return false
	}
	go func() {
		nodesR, namesR, err := open()
		if err != nil {
			log.Printf("ingest: open inputs: %v", err)
			e.Status.Finish(err)
			return
		}
		defer func() { _ = nodesR.Close() }() // safe to ignore
		defer func() { _ = namesR.Close() }() // safe to ignore

		_, err = e.Run(ctx, nodesR, namesR)
		if err != nil {
			log.Printf("ingest: import failed: %v", err)
		}
		e.Status.Finish(err)
	}()
	return true
}
