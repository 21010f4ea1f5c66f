package api

// Species is the record shape returned for search, sample, and lineage
// results. It maps one taxon from the loaded graph.
type Species struct {
	// TaxID is the unique integer identifier from the source taxonomy.
	TaxID int `json:"taxid"`
	// ScientificName is always present; synthesized as "Unknown_<taxid>"
	// when the source names file has no scientific name row.
	ScientificName string `json:"scientific_name"`
	// CommonName is optional (first common-name row wins).
	CommonName string `json:"common_name,omitempty"`
	// Rank is an open string enum (species, genus, ..., "no rank").
	Rank string `json:"rank"`
	// DisplayName is CommonName when present, otherwise ScientificName.
	DisplayName string `json:"display_name"`
}

// LineageEntry is a Species annotated for comparative lineage views.
type LineageEntry struct {
	Species
	// Shared is true when this ancestor appears in both compared lineages.
	Shared bool `json:"shared"`
}

// ComparedSpecies bundles one side of a pairwise lineage comparison.
type ComparedSpecies struct {
	TaxID          int            `json:"taxid"`
	ScientificName string         `json:"scientific_name"`
	CommonName     string         `json:"common_name,omitempty"`
	DisplayName    string         `json:"display_name"`
	Lineage        []LineageEntry `json:"lineage"`
}

// CommonAncestor identifies the most recent common ancestor of two taxa.
type CommonAncestor struct {
	TaxID int    `json:"taxid"`
	Rank  string `json:"rank"`
	Name  string `json:"name"`
}

// ComparisonSummary carries the MRCA (nil when the two taxa share no
// ancestor, e.g. disjoint forests) and the size of the common ancestor set.
type ComparisonSummary struct {
	CommonAncestor       *CommonAncestor `json:"common_ancestor"`
	TotalCommonAncestors int             `json:"total_common_ancestors"`
}

// Comparison is the full pairwise lineage comparison bundle.
type Comparison struct {
	Species1   ComparedSpecies   `json:"species1"`
	Species2   ComparedSpecies   `json:"species2"`
	Comparison ComparisonSummary `json:"comparison"`
}

// ImportStatus reports the state of the current or last ingestion run.
type ImportStatus struct {
	Running  bool   `json:"running"`
	Complete bool   `json:"complete"`
	Error    string `json:"error,omitempty"`
}
