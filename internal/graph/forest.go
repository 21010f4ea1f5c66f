// Package graph holds the rooted-forest representation of the taxonomy:
// an in-memory arena of taxa indexed by taxid, a SQLite-backed persistent
// store, post-load integrity validation, and a hot-swap holder that lets
// readers keep querying while a fresh import builds the next forest.
package graph

import (
	"errors"
	"sort"
)

var (
	// ErrNotFound is returned when a queried taxid is absent from the forest.
	ErrNotFound = errors.New("taxon not found")
	// ErrNotReady is returned while no complete forest has been loaded yet.
	ErrNotReady = errors.New("taxonomy graph not ready")
	// ErrUnavailable wraps failures to reach the persistent store.
	ErrUnavailable = errors.New("taxonomy store unavailable")
)

// Taxon is one node of the taxonomy forest.
type Taxon struct {
	TaxID          int
	ScientificName string
	CommonName     string
	Rank           string
}

// DisplayName is the common name when one exists, otherwise the scientific name.
func (t *Taxon) DisplayName() string {
	if t.CommonName != "" {
		return t.CommonName
	}
	return t.ScientificName
}

// NoParent is the root sentinel in the parent index.
const NoParent int32 = -1

// DupParent records a second inbound edge seen for a child during load.
// The arena keeps the first parent; the duplicate is surfaced by Validate.
type DupParent struct {
	Child int // child taxid
	Kept  int // parent taxid already in the arena
	Extra int // parent taxid of the rejected duplicate edge
}

// Forest is an arena of taxa with a single-parent index and, after Freeze,
// a derived child index. Mutable through AddTaxon/SetParent until Freeze;
// strictly read-only afterwards, so concurrent reads need no locking.
type Forest struct {
	taxa    []Taxon
	index   map[int]int32 // taxid → arena offset
	parents []int32       // arena offset → parent offset, NoParent for roots

	// Derived by Freeze.
	children [][]int32
	roots    []int32
	frozen   bool

	// Load diagnostics consumed by Validate.
	dups     []DupParent
	dangling []int32 // offsets whose declared parent taxid is absent
}

// NewForest allocates a forest with room for n taxa.
func NewForest(n int) *Forest {
	return &Forest{
		taxa:  make([]Taxon, 0, n),
		index: make(map[int]int32, n),
	}
}

// AddTaxon appends a taxon to the arena. A repeated taxid overwrites the
// earlier record (cannot happen when loading from the keyed store).
func (f *Forest) AddTaxon(t Taxon) {
	if i, ok := f.index[t.TaxID]; ok {
		f.taxa[i] = t
		return
	}
	f.index[t.TaxID] = int32(len(f.taxa))
	f.taxa = append(f.taxa, t)
	f.parents = append(f.parents, NoParent)
}

// SetParent records a ParentOf edge (parent → child). The first edge per
// child wins; later ones are kept as DupParent diagnostics. An edge whose
// parent taxid is not in the arena marks the child as dangling.
func (f *Forest) SetParent(child, parent int) {
	ci, ok := f.index[child]
	if !ok {
		return // edge to a node that was never created; nothing to anchor it to
	}
	pi, ok := f.index[parent]
	if !ok {
		f.dangling = append(f.dangling, ci)
		return
	}
	if f.parents[ci] != NoParent {
		f.dups = append(f.dups, DupParent{
			Child: child,
			Kept:  f.taxa[f.parents[ci]].TaxID,
			Extra: parent,
		})
		return
	}
	f.parents[ci] = pi
}

// Freeze derives the child index and root set. Call once, after all taxa
// and edges are in; the forest is read-only from then on.
func (f *Forest) Freeze() {
	f.children = make([][]int32, len(f.taxa))
	dangling := make(map[int32]bool, len(f.dangling))
	for _, i := range f.dangling {
		dangling[i] = true
	}
	for i, p := range f.parents {
		if p == NoParent {
			if !dangling[int32(i)] {
				f.roots = append(f.roots, int32(i))
			}
			continue
		}
		f.children[p] = append(f.children[p], int32(i))
	}
	sort.Slice(f.roots, func(a, b int) bool {
		return f.taxa[f.roots[a]].TaxID < f.taxa[f.roots[b]].TaxID
	})
	f.frozen = true
}

// Len returns the number of taxa in the arena.
func (f *Forest) Len() int { return len(f.taxa) }

// EdgeCount returns the number of resolved parent edges.
func (f *Forest) EdgeCount() int {
	n := 0
	for _, p := range f.parents {
		if p != NoParent {
			n++
		}
	}
	return n
}

// Node looks up a taxon by taxid.
func (f *Forest) Node(taxid int) (*Taxon, bool) {
	i, ok := f.index[taxid]
	if !ok {
		return nil, false
	}
	return &f.taxa[i], true
}

// At returns the taxon at an arena offset. Offsets are stable after Freeze;
// the query engine uses them as bitmap keys.
func (f *Forest) At(i int32) *Taxon { return &f.taxa[i] }

// OffsetOf returns the arena offset of a taxid.
func (f *Forest) OffsetOf(taxid int) (int32, bool) {
	i, ok := f.index[taxid]
	return i, ok
}

// Roots returns the taxids of all forest roots, ascending.
func (f *Forest) Roots() []int {
	out := make([]int, len(f.roots))
	for i, r := range f.roots {
		out[i] = f.taxa[r].TaxID
	}
	return out
}

// Children returns the taxids of the direct children of taxid.
// Only valid after Freeze.
func (f *Forest) Children(taxid int) []int {
	i, ok := f.index[taxid]
	if !ok {
		return nil
	}
	out := make([]int, len(f.children[i]))
	for j, c := range f.children[i] {
		out[j] = f.taxa[c].TaxID
	}
	return out
}

// Lineage walks from taxid to its root, self first, root last. Each entry
// is deduplicated by taxid: a revisited offset ends the walk, so a cyclic
// (invalid) forest still yields a finite lineage.
func (f *Forest) Lineage(taxid int) ([]Taxon, bool) {
	i, ok := f.index[taxid]
	if !ok {
		return nil, false
	}
	var out []Taxon
	seen := make(map[int32]bool)
	for i != NoParent && !seen[i] {
		seen[i] = true
		out = append(out, f.taxa[i])
		i = f.parents[i]
	}
	return out, true
}

// parentOffset exposes the raw parent index to the validator.
func (f *Forest) parentOffset(i int32) int32 { return f.parents[i] }

// Dups returns duplicate-edge diagnostics collected during load.
func (f *Forest) Dups() []DupParent { return f.dups }

// danglingOffsets returns offsets whose declared parent was never created.
func (f *Forest) danglingOffsets() []int32 { return f.dangling }
