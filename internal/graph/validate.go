package graph

import (
	"fmt"
	"sort"
)

// Report is the outcome of post-load integrity validation. Violations are
// acceptance criteria on the source data, not write-time constraints: the
// dump may itself be inconsistent and the validator surfaces that instead
// of silently fixing it. A violating load still serves queries.
type Report struct {
	// MultiParent lists children that had a second inbound edge.
	MultiParent []DupParent
	// Cycles lists taxids that sit on a parent cycle.
	Cycles []int
	// Unreachable lists taxids whose backward walk never reaches a root:
	// either their declared parent is absent, or the walk falls into a cycle.
	Unreachable []int
}

// OK reports whether the load passed every structural check.
func (r *Report) OK() bool {
	return len(r.MultiParent) == 0 && len(r.Cycles) == 0 && len(r.Unreachable) == 0
}

// Summary is a one-line operator-visible description of the report.
func (r *Report) Summary() string {
	if r.OK() {
		return "integrity ok"
	}
	return fmt.Sprintf("integrity violations: %d multi-parent, %d on cycles, %d unreachable",
		len(r.MultiParent), len(r.Cycles), len(r.Unreachable))
}

// walk states for cycle detection.
const (
	stateUnvisited = iota
	stateOnPath
	stateOK      // reaches a root
	stateCycle   // member of a cycle
	stateUnreach // reaches a cycle or a dangling parent, never a root
)

// Validate runs the three structural checks over a frozen forest:
// single inbound edge per non-root node, acyclicity, and reachability of
// every node from some root by following child→parent edges to a fixed
// point. O(n) total: every node is resolved exactly once.
func Validate(f *Forest) *Report {
	r := &Report{MultiParent: f.Dups()}

	n := len(f.taxa)
	state := make([]uint8, n)
	dangling := make(map[int32]bool, len(f.danglingOffsets()))
	for _, i := range f.danglingOffsets() {
		dangling[i] = true
	}

	var path []int32
	for start := 0; start < n; start++ {
		if state[start] != stateUnvisited {
			continue
		}
		path = path[:0]
		i := int32(start)

		var verdict uint8
		for {
			if state[i] == stateUnvisited {
				state[i] = stateOnPath
				path = append(path, i)
				p := f.parentOffset(i)
				if p == NoParent {
					if dangling[i] {
						verdict = stateUnreach
					} else {
						verdict = stateOK
					}
					break
				}
				i = p
				continue
			}
			if state[i] == stateOnPath {
				// Revisited a node on the current walk: everything from its
				// first occurrence onward is a cycle, everything before it
				// merely drains into one.
				cycleStart := 0
				for k, v := range path {
					if v == i {
						cycleStart = k
						break
					}
				}
				for _, v := range path[cycleStart:] {
					state[v] = stateCycle
				}
				path = path[:cycleStart]
				verdict = stateUnreach
				break
			}
			// Hit an already-resolved node.
			if state[i] == stateOK {
				verdict = stateOK
			} else {
				verdict = stateUnreach
			}
			break
		}

		for _, v := range path {
			state[v] = verdict
		}
	}

	for i := 0; i < n; i++ {
		switch state[i] {
		case stateCycle:
			r.Cycles = append(r.Cycles, f.taxa[i].TaxID)
		case stateUnreach:
			r.Unreachable = append(r.Unreachable, f.taxa[i].TaxID)
		}
	}
	sort.Ints(r.Cycles)
	sort.Ints(r.Unreachable)
	return r
}
