package ingest

import (
	"sync"

	"github.com/agentic-research/taxograph/api"
)

// Status is the import state handle: owned by the ingestion engine, read
// through a thread-safe accessor by whoever serves queries. It replaces
// any notion of process-wide mutable import flags.
type Status struct {
	mu       sync.Mutex
	running  bool
	complete bool
	errMsg   string
}

// NewStatus returns an idle status handle.
func NewStatus() *Status {
	return &Status{}
}

// Begin transitions to running. Returns false if an import is already in
// flight; a new run resets the completion and error state of the last one.
func (s *Status) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.complete = false
	s.errMsg = ""
	return true
}

// Finish records the outcome of the run started by Begin.
func (s *Status) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if err != nil {
		s.errMsg = err.Error()
		return
	}
	s.complete = true
}

// Snapshot returns the current state as the wire-shaped status record.
func (s *Status) Snapshot() api.ImportStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return api.ImportStatus{
		Running:  s.running,
		Complete: s.complete,
		Error:    s.errMsg,
	}
}

// Running reports whether an import is in flight.
func (s *Status) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
