package graph

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DefaultBatchSize bounds the number of rows per bulk-load transaction.
const DefaultBatchSize = 10000

const storeSchema = `
CREATE TABLE IF NOT EXISTS taxa (
	taxid INTEGER PRIMARY KEY,
	scientific_name TEXT NOT NULL,
	common_name TEXT,
	rank TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
	child INTEGER NOT NULL,
	parent INTEGER NOT NULL,
	PRIMARY KEY (child, parent)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS idx_edges_parent ON edges(parent);
`

// Store is the persistent rooted-forest representation: a taxa table keyed
// by taxid and a child→parent edge table. It is written only by full
// ingestion runs (clear-then-rebuild) and read back whole into a Forest.
type Store struct {
	db        *sql.DB
	path      string
	batchSize int
}

// OpenStore opens (creating if needed) the store at path. Open failures are
// wrapped in ErrUnavailable so callers can degrade instead of retrying inline.
func OpenStore(path string, batchSize int) (*Store, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}

	// Bulk-insert tuning. Durability does not matter here: the store is a
	// derived artifact, rebuilt from the dump on the next import.
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close() // ignore error
		return nil, fmt.Errorf("%w: tune %s: %v", ErrUnavailable, path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close() // ignore error
		return nil, fmt.Errorf("%w: tune %s: %v", ErrUnavailable, path, err)
	}

	if _, err := db.Exec(storeSchema); err != nil {
		_ = db.Close() // ignore error
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path, batchSize: batchSize}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Clear wipes all nodes and edges. Every ingestion run starts here, which
// makes repeated runs against the same input converge to the same graph.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM edges"); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM taxa"); err != nil {
		return fmt.Errorf("clear taxa: %w", err)
	}
	return nil
}

// Counts returns the stored node and edge counts.
func (s *Store) Counts() (taxa, edges int, err error) {
	if err = s.db.QueryRow("SELECT COUNT(*) FROM taxa").Scan(&taxa); err != nil {
		return 0, 0, fmt.Errorf("count taxa: %w", err)
	}
	if err = s.db.QueryRow("SELECT COUNT(*) FROM edges").Scan(&edges); err != nil {
		return 0, 0, fmt.Errorf("count edges: %w", err)
	}
	return taxa, edges, nil
}

// IsEmpty reports whether the store contains no taxa.
func (s *Store) IsEmpty() (bool, error) {
	taxa, _, err := s.Counts()
	if err != nil {
		return false, err
	}
	return taxa == 0, nil
}

// bulkWriter batches prepared inserts: commit and re-begin every batchSize
// rows so no single transaction grows unbounded.
type bulkWriter struct {
	db        *sql.DB
	insert    string
	tx        *sql.Tx
	stmt      *sql.Stmt
	batchSize int
	count     int
}

func newBulkWriter(db *sql.DB, insert string, batchSize int) (*bulkWriter, error) {
	w := &bulkWriter{db: db, insert: insert, batchSize: batchSize}
	if err := w.beginTx(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *bulkWriter) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmt, err = w.tx.Prepare(w.insert)
	return err
}

func (w *bulkWriter) commitTx() error {
	if w.stmt != nil {
		_ = w.stmt.Close()
	}
	return w.tx.Commit()
}

func (w *bulkWriter) exec(args ...any) error {
	if _, err := w.stmt.Exec(args...); err != nil {
		return err
	}
	w.count++
	if w.count >= w.batchSize {
		if err := w.commitTx(); err != nil {
			return err
		}
		if err := w.beginTx(); err != nil {
			return err
		}
		w.count = 0
	}
	return nil
}

// close flushes the trailing partial batch.
func (w *bulkWriter) close() error { return w.commitTx() }

// TaxonWriter bulk-inserts taxa. The loader must Close it before opening an
// EdgeWriter: all nodes exist before any edge is written.
type TaxonWriter struct {
	w *bulkWriter
}

// NewTaxonWriter starts the node phase of a bulk load.
func (s *Store) NewTaxonWriter() (*TaxonWriter, error) {
	w, err := newBulkWriter(s.db,
		"INSERT OR REPLACE INTO taxa (taxid, scientific_name, common_name, rank) VALUES (?, ?, ?, ?)",
		s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("begin taxon batch: %w", err)
	}
	return &TaxonWriter{w: w}, nil
}

// Add writes one taxon. Order of node creation is irrelevant.
func (tw *TaxonWriter) Add(t Taxon) error {
	var common any
	if t.CommonName != "" {
		common = t.CommonName
	}
	if err := tw.w.exec(t.TaxID, t.ScientificName, common, t.Rank); err != nil {
		return fmt.Errorf("insert taxon %d: %w", t.TaxID, err)
	}
	return nil
}

// Close commits the final batch of the node phase.
func (tw *TaxonWriter) Close() error { return tw.w.close() }

// EdgeWriter bulk-inserts ParentOf edges (parent → child, stored child-keyed).
type EdgeWriter struct {
	w *bulkWriter
}

// NewEdgeWriter starts the edge phase of a bulk load.
func (s *Store) NewEdgeWriter() (*EdgeWriter, error) {
	w, err := newBulkWriter(s.db,
		"INSERT OR IGNORE INTO edges (child, parent) VALUES (?, ?)",
		s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("begin edge batch: %w", err)
	}
	return &EdgeWriter{w: w}, nil
}

// Add writes one edge.
func (ew *EdgeWriter) Add(child, parent int) error {
	if err := ew.w.exec(child, parent); err != nil {
		return fmt.Errorf("insert edge %d->%d: %w", parent, child, err)
	}
	return nil
}

// Close commits the final batch of the edge phase.
func (ew *EdgeWriter) Close() error { return ew.w.close() }

// LoadForest reads the whole store back into an arena and freezes it.
// Duplicate-edge and dangling-parent diagnostics are preserved on the
// returned Forest for the validator.
func (s *Store) LoadForest() (*Forest, error) {
	taxa, _, err := s.Counts()
	if err != nil {
		return nil, err
	}
	f := NewForest(taxa)

	rows, err := s.db.Query("SELECT taxid, scientific_name, common_name, rank FROM taxa")
	if err != nil {
		return nil, fmt.Errorf("load taxa: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore
	for rows.Next() {
		var t Taxon
		var common sql.NullString
		if err := rows.Scan(&t.TaxID, &t.ScientificName, &common, &t.Rank); err != nil {
			return nil, fmt.Errorf("scan taxon: %w", err)
		}
		t.CommonName = common.String
		f.AddTaxon(t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate taxa: %w", err)
	}

	erows, err := s.db.Query("SELECT child, parent FROM edges")
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	defer func() { _ = erows.Close() }() // safe to ignore
	for erows.Next() {
		var child, parent int
		if err := erows.Scan(&child, &parent); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		f.SetParent(child, parent)
	}
	if err := erows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}

	f.Freeze()
	return f, nil
}
