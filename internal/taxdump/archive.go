package taxdump

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// NodesFileName and NamesFileName are the two dump members this engine uses.
// The archive carries several more (merged.dmp, citations.dmp, ...) which
// are skipped.
const (
	NodesFileName = "nodes.dmp"
	NamesFileName = "names.dmp"
)

// ErrMissingDumpFile is returned when the archive lacks nodes.dmp or names.dmp.
var ErrMissingDumpFile = errors.New("archive missing required dump file")

// ExtractDump unpacks nodes.dmp and names.dmp from a local taxdump.tar.gz
// into dir and returns their paths. Fetching the archive from NCBI is the
// caller's problem; this only handles a file already on disk.
func ExtractDump(archivePath, dir string) (nodesPath, namesPath string, err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", "", fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer func() { _ = f.Close() }() // safe to ignore

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", "", fmt.Errorf("gunzip %s: %w", archivePath, err)
	}
	defer func() { _ = gz.Close() }() // safe to ignore

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("read archive %s: %w", archivePath, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		// Member names in taxdump.tar.gz are flat, but guard against
		// path components anyway.
		name := filepath.Base(hdr.Name)
		if name != NodesFileName && name != NamesFileName {
			continue
		}

		dest := filepath.Join(dir, name)
		out, err := os.Create(dest)
		if err != nil {
			return "", "", fmt.Errorf("create %s: %w", dest, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			_ = out.Close() // ignore error
			return "", "", fmt.Errorf("extract %s: %w", name, err)
		}
		if err := out.Close(); err != nil {
			return "", "", fmt.Errorf("close %s: %w", dest, err)
		}

		switch name {
		case NodesFileName:
			nodesPath = dest
		case NamesFileName:
			namesPath = dest
		}
	}

	if nodesPath == "" || namesPath == "" {
		return "", "", fmt.Errorf("%w: need %s and %s", ErrMissingDumpFile, NodesFileName, NamesFileName)
	}
	return nodesPath, namesPath, nil
}
