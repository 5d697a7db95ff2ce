// Package cycles finds closed loops of directed relationships through a
// given entity.
package cycles

import (
	"sort"

	"github.com/linkscope/linkscope/internal/graph"
)

const (
	DefaultMaxDepth         = 6
	DefaultDetailedMaxDepth = 8
	DefaultMaxCycles        = 50
	// MinLength is the shortest loop that counts as a cycle. A->B->A
	// back-and-forth pairs are not reported.
	MinLength = 3
)

// Cycle is a closed walk: Path[0] == Path[len(Path)-1].
type Cycle struct {
	Path   []string `json:"path"`
	Length int      `json:"length"`
}

// DetailedCycle is a cycle together with the edge used for each hop.
type DetailedCycle struct {
	Cycle
	Edges []graph.Edge `json:"edges"`
}

type frame struct {
	parent *frame
	node   string
	edge   graph.Edge
	size   int // nodes on the branch, including this one
}

func (f *frame) contains(id string) bool {
	for p := f; p != nil; p = p.parent {
		if p.node == id {
			return true
		}
	}
	return false
}

// close materializes the branch plus the hop back to the start.
func (f *frame) close(back graph.Edge) DetailedCycle {
	c := DetailedCycle{
		Cycle: Cycle{Path: make([]string, f.size+1), Length: f.size},
		Edges: make([]graph.Edge, f.size),
	}
	c.Path[f.size] = back.Target
	c.Edges[f.size-1] = back
	for cur := f; cur != nil; cur = cur.parent {
		c.Path[cur.size-1] = cur.node
		if cur.parent != nil {
			c.Edges[cur.size-2] = cur.edge
		}
	}
	return c
}

// FindCycles returns the simple directed cycles through start, as node
// paths, with at most maxDepth hops each and at most maxCycles in total.
func FindCycles(s *graph.Snapshot, start string, maxDepth, maxCycles int) []Cycle {
	detailed := search(s, start, maxDepth, maxCycles)
	out := make([]Cycle, len(detailed))
	for i, c := range detailed {
		out[i] = c.Cycle
	}
	return out
}

// FindDetailedCycles is FindCycles with the edge of every hop attached.
func FindDetailedCycles(s *graph.Snapshot, start string, maxDepth, maxCycles int) []DetailedCycle {
	return search(s, start, maxDepth, maxCycles)
}

// search walks outgoing edges depth-first from start. Each stack entry is a
// branch plus a cursor into its outgoing edges, so edges are visited in
// exactly the order a recursive walk would visit them.
//
// An edge back to start closes a cycle when the branch already holds at
// least MinLength nodes. Branches never grow past maxDepth nodes, and the
// walk stops once maxCycles cycles are recorded. Cycles are deduplicated by
// their sorted node set: two loops over the same entities count once even
// when they use different edges.
func search(s *graph.Snapshot, start string, maxDepth, maxCycles int) []DetailedCycle {
	found := []DetailedCycle{}
	if maxDepth < MinLength || maxCycles <= 0 || !s.Has(start) {
		return found
	}

	type cursor struct {
		f    *frame
		next int
	}

	seen := graph.NewSeqSet[string]()
	stack := []cursor{{f: &frame{node: start, size: 1}}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		out := s.Outgoing(top.f.node)
		if top.next >= len(out) {
			stack = stack[:len(stack)-1]
			continue
		}
		f, e := top.f, out[top.next]
		top.next++

		if e.Target == start {
			if f.size < MinLength {
				continue
			}
			c := f.close(e)
			if !seen.Add(canonical(c.Path)) {
				continue
			}
			found = append(found, c)
			if len(found) >= maxCycles {
				return found
			}
			continue
		}
		if f.size >= maxDepth || f.contains(e.Target) {
			continue
		}
		stack = append(stack, cursor{f: &frame{parent: f, node: e.Target, edge: e, size: f.size + 1}})
	}
	return found
}

// canonical returns the sorted node ids of a closed path, without the
// repeated start.
func canonical(path []string) []string {
	ids := make([]string, len(path)-1)
	copy(ids, path[:len(path)-1])
	sort.Strings(ids)
	return ids
}
