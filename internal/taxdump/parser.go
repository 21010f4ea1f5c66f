// Package taxdump parses the NCBI taxonomy dump flat files (nodes.dmp,
// names.dmp). The format is record-per-line with field separator "\t|\t"
// and a trailing "\t|" on each line. Parsing is best-effort: malformed rows
// are counted and skipped, never fatal.
package taxdump

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

const (
	nameClassScientific = "scientific name"
	nameClassCommon     = "common name"

	fieldSep    = "\t|\t"
	trailingSep = "\t|"
)

// NodeRecord is one parsed row of nodes.dmp.
// Parent is 0 when the row declared itself as its own parent (a root).
// Taxid 0 does not occur in the dump, so 0 is a safe sentinel.
type NodeRecord struct {
	Parent int
	Rank   string
}

// NameRecord accumulates the names of one taxid across names.dmp rows.
type NameRecord struct {
	Scientific string
	Common     string
}

// Stats counts parse outcomes for one stream.
type Stats struct {
	Lines   int // non-empty lines seen
	Skipped int // malformed rows dropped
}

// splitRow strips the trailing "\t|" and splits on "\t|\t", trimming each
// field. Extra trailing fields are preserved (callers ignore them).
func splitRow(line string) []string {
	line = strings.TrimSuffix(line, trailingSep)
	parts := strings.Split(line, fieldSep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// ParseNodes reads a nodes.dmp stream into taxid → NodeRecord.
// Rows need at least [taxid, parent_taxid, rank]; rows with fewer fields or
// non-integer ids are skipped.
func ParseNodes(r io.Reader) (map[int]NodeRecord, *Stats, error) {
	nodes := make(map[int]NodeRecord)
	stats := &Stats{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		stats.Lines++

		parts := splitRow(line)
		if len(parts) < 3 {
			stats.Skipped++
			continue
		}
		taxid, err := strconv.Atoi(parts[0])
		if err != nil {
			stats.Skipped++
			continue
		}
		parent, err := strconv.Atoi(parts[1])
		if err != nil {
			stats.Skipped++
			continue
		}

		// A self-parent marks a root of the forest.
		if parent == taxid {
			parent = 0
		}
		nodes[taxid] = NodeRecord{Parent: parent, Rank: parts[2]}
	}
	if err := sc.Err(); err != nil {
		return nil, stats, err
	}
	return nodes, stats, nil
}

// ParseNames reads a names.dmp stream into taxid → NameRecord.
// Rows need at least [taxid, name, unique_name, name_class]. The scientific
// name comes from the "scientific name" row; the common name from the FIRST
// "common name" row — later common-name rows for the same taxid are ignored.
func ParseNames(r io.Reader) (map[int]NameRecord, *Stats, error) {
	names := make(map[int]NameRecord)
	stats := &Stats{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		stats.Lines++

		parts := splitRow(line)
		if len(parts) < 4 {
			stats.Skipped++
			continue
		}
		taxid, err := strconv.Atoi(parts[0])
		if err != nil {
			stats.Skipped++
			continue
		}
		name := parts[1]

		rec := names[taxid]
		switch parts[3] {
		case nameClassScientific:
			rec.Scientific = name
		case nameClassCommon:
			if rec.Common == "" {
				rec.Common = name
			}
		default:
			// Other name classes (synonym, authority, ...) are not used.
			continue
		}
		names[taxid] = rec
	}
	if err := sc.Err(); err != nil {
		return nil, stats, err
	}
	return names, stats, nil
}
