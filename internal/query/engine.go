// Package query is the read side of the taxonomy graph: lineage walks,
// rank-restricted name search, curated samples, and pairwise lineage
// comparison with most-recent-common-ancestor resolution. Every operation
// runs against an immutable forest; no query mutates state.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/taxograph/api"
	"github.com/agentic-research/taxograph/internal/graph"
	"github.com/agentic-research/taxograph/internal/ingest"
)

// RankSpecies is the rank restricting search and sample results.
const RankSpecies = "species"

// rankOrder maps ranks to specificity (lower = more specific) for MRCA
// selection. Any rank not listed gets unrankedOrder. The table is fixed;
// no extra semantics are inferred from it.
var rankOrder = map[string]int{
	"species":       1,
	"genus":         2,
	"subfamily":     3,
	"family":        4,
	"suborder":      5,
	"order":         6,
	"superorder":    7,
	"class":         8,
	"phylum":        9,
	"kingdom":       10,
	"superkingdom":  11,
	"domain":        12,
	"cellular root": 13,
	"no rank":       14,
}

const unrankedOrder = 15

func rankKey(rank string) int {
	if k, ok := rankOrder[rank]; ok {
		return k
	}
	return unrankedOrder
}

// DefaultSampleTaxIDs is the curated reference set for the sample view.
var DefaultSampleTaxIDs = []int{
	9606, // human
	9615, // dog
	9685, // cat
	9796, // horse
	9913, // cow
	9031, // chicken
	8030, // salmon
	7227, // fruit fly
	4932, // yeast
	562,  // E. coli
}

// Engine answers read-only queries against the currently served forest and
// exposes the import controls the presentation layer consumes.
type Engine struct {
	swap    *graph.HotSwap
	ingest  *ingest.Engine
	samples []int

	// openDump supplies fresh dump readers for background imports.
	openDump func() (nodes, names io.ReadCloser, err error)

	// Species bitmap over arena offsets, rebuilt when the forest swaps.
	mu      sync.Mutex
	indexed *graph.Forest
	species *roaring.Bitmap
}

// NewEngine wires a query engine. samples may be nil for the default set.
func NewEngine(swap *graph.HotSwap, ing *ingest.Engine, samples []int) *Engine {
	if len(samples) == 0 {
		samples = DefaultSampleTaxIDs
	}
	return &Engine{swap: swap, ingest: ing, samples: samples}
}

// SetImportSource installs the dump supplier used by StartImport.
func (e *Engine) SetImportSource(open func() (nodes, names io.ReadCloser, err error)) {
	e.openDump = open
}

// forest returns the served forest or ErrNotReady. Queries never race an
// in-flight import: until the swap, they see the previous complete load.
func (e *Engine) forest() (*graph.Forest, error) {
	f := e.swap.Current()
	if f == nil {
		return nil, graph.ErrNotReady
	}
	return f, nil
}

// speciesIndex returns the bitmap of arena offsets whose rank is species,
// building it once per served forest.
func (e *Engine) speciesIndex(f *graph.Forest) *roaring.Bitmap {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexed == f {
		return e.species
	}
	bm := roaring.New()
	for i := 0; i < f.Len(); i++ {
		if f.At(int32(i)).Rank == RankSpecies {
			bm.Add(uint32(i))
		}
	}
	e.indexed = f
	e.species = bm
	return bm
}

func toSpecies(t *graph.Taxon) api.Species {
	return api.Species{
		TaxID:          t.TaxID,
		ScientificName: t.ScientificName,
		CommonName:     t.CommonName,
		Rank:           t.Rank,
		DisplayName:    t.DisplayName(),
	}
}

// Lineage returns the ordered ancestor chain of taxid: the taxon itself
// first, its root last. graph.ErrNotFound when the taxid is absent.
func (e *Engine) Lineage(taxid int) ([]api.Species, error) {
	f, err := e.forest()
	if err != nil {
		return nil, err
	}
	chain, ok := f.Lineage(taxid)
	if !ok {
		return nil, fmt.Errorf("taxid %d: %w", taxid, graph.ErrNotFound)
	}
	out := make([]api.Species, len(chain))
	for i := range chain {
		out[i] = toSpecies(&chain[i])
	}
	return out, nil
}

// Search matches q case-insensitively as a substring of the scientific or
// common name, species rank only. Ordering: common-name prefix matches,
// then scientific-name prefix matches, then any other substring match;
// ascending scientific name within each tier. At most limit results.
func (e *Engine) Search(q string, limit int) ([]api.Species, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, errors.New("empty search query")
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit %d out of range", limit)
	}
	f, err := e.forest()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)

	type hit struct {
		tier int
		sp   api.Species
	}
	var hits []hit

	it := e.speciesIndex(f).Iterator()
	for it.HasNext() {
		t := f.At(int32(it.Next()))
		sci := strings.ToLower(t.ScientificName)
		common := strings.ToLower(t.CommonName)

		var tier int
		switch {
		case common != "" && strings.HasPrefix(common, needle):
			tier = 1
		case strings.HasPrefix(sci, needle):
			tier = 2
		case strings.Contains(sci, needle) || (common != "" && strings.Contains(common, needle)):
			tier = 3
		default:
			continue
		}
		hits = append(hits, hit{tier: tier, sp: toSpecies(t)})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].tier != hits[b].tier {
			return hits[a].tier < hits[b].tier
		}
		return hits[a].sp.ScientificName < hits[b].sp.ScientificName
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]api.Species, len(hits))
	for i, h := range hits {
		out[i] = h.sp
	}
	return out, nil
}

// Sample returns the curated reference taxa present in the forest,
// species rank only, ascending by scientific name.
func (e *Engine) Sample() ([]api.Species, error) {
	f, err := e.forest()
	if err != nil {
		return nil, err
	}
	var out []api.Species
	for _, taxid := range e.samples {
		t, ok := f.Node(taxid)
		if !ok || t.Rank != RankSpecies {
			continue
		}
		out = append(out, toSpecies(t))
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].ScientificName < out[b].ScientificName
	})
	return out, nil
}

// Compare bundles both lineages with shared-ancestor annotations, the MRCA
// (nil when the taxa sit in disjoint trees), and the common-ancestor count.
func (e *Engine) Compare(taxidA, taxidB int) (*api.Comparison, error) {
	f, err := e.forest()
	if err != nil {
		return nil, err
	}
	lineageA, ok := f.Lineage(taxidA)
	if !ok {
		return nil, fmt.Errorf("taxid %d: %w", taxidA, graph.ErrNotFound)
	}
	lineageB, ok := f.Lineage(taxidB)
	if !ok {
		return nil, fmt.Errorf("taxid %d: %w", taxidB, graph.ErrNotFound)
	}

	// Hash-set intersection over the two ancestor taxid sets, as bitmaps.
	setA := roaring.New()
	for i := range lineageA {
		setA.Add(uint32(lineageA[i].TaxID))
	}
	setB := roaring.New()
	for i := range lineageB {
		setB.Add(uint32(lineageB[i].TaxID))
	}
	common := roaring.And(setA, setB)

	// MRCA: most specific rank wins; equal ranks tie-break on the smaller
	// taxid so the result is deterministic.
	var mrca *graph.Taxon
	cit := common.Iterator()
	for cit.HasNext() {
		t, _ := f.Node(int(cit.Next()))
		if mrca == nil {
			mrca = t
			continue
		}
		k, best := rankKey(t.Rank), rankKey(mrca.Rank)
		if k < best || (k == best && t.TaxID < mrca.TaxID) {
			mrca = t
		}
	}

	summary := api.ComparisonSummary{
		TotalCommonAncestors: int(common.GetCardinality()),
	}
	if mrca != nil {
		summary.CommonAncestor = &api.CommonAncestor{
			TaxID: mrca.TaxID,
			Rank:  mrca.Rank,
			Name:  mrca.DisplayName(),
		}
	}

	return &api.Comparison{
		Species1:   comparedSide(lineageA, common),
		Species2:   comparedSide(lineageB, common),
		Comparison: summary,
	}, nil
}

func comparedSide(lineage []graph.Taxon, common *roaring.Bitmap) api.ComparedSpecies {
	self := &lineage[0]
	side := api.ComparedSpecies{
		TaxID:          self.TaxID,
		ScientificName: self.ScientificName,
		CommonName:     self.CommonName,
		DisplayName:    self.DisplayName(),
		Lineage:        make([]api.LineageEntry, len(lineage)),
	}
	for i := range lineage {
		side.Lineage[i] = api.LineageEntry{
			Species: toSpecies(&lineage[i]),
			Shared:  common.Contains(uint32(lineage[i].TaxID)),
		}
	}
	return side
}

// Ready reports whether a complete, validated load is being served.
func (e *Engine) Ready() bool {
	return e.swap.Ready()
}

// IsEmpty reports whether the graph holds no taxonomy data. When the store
// cannot be reached it assumes empty, mirroring how the presentation layer
// treats an unreachable backend.
func (e *Engine) IsEmpty() bool {
	if f := e.swap.Current(); f != nil {
		return f.Len() == 0
	}
	if e.ingest == nil || e.ingest.Store == nil {
		return true
	}
	empty, err := e.ingest.Store.IsEmpty()
	if err != nil {
		return true
	}
	return empty
}

// StartImport kicks off a background import from the configured dump
// source. Returns false when one is already running or no source is set.
func (e *Engine) StartImport(ctx context.Context) bool {
	if e.ingest == nil || e.openDump == nil {
		return false
	}
	return e.ingest.Launch(ctx, e.openDump)
}

// ImportStatus reports the state of the current or last import run.
func (e *Engine) ImportStatus() api.ImportStatus {
	if e.ingest == nil {
		return api.ImportStatus{}
	}
	return e.ingest.Status.Snapshot()
}
