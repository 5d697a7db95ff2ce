// Package pathfind answers "how does entity A reach entity B" over a graph
// snapshot: exhaustive bounded enumeration with exposure ranking, plus
// breadth-first shortest-path and legacy multi-path searches.
package pathfind

import (
	"github.com/linkscope/linkscope/internal/exposure"
	"github.com/linkscope/linkscope/internal/graph"
)

// Path is a simple path: no node appears twice and Length == len(Edges).
type Path struct {
	Nodes  []string     `json:"nodes"`
	Edges  []graph.Edge `json:"edges"`
	Length int          `json:"length"`
}

// Keys returns the (source, target, type) triple of every hop.
func (p Path) Keys() []graph.EdgeKey {
	keys := make([]graph.EdgeKey, len(p.Edges))
	for i, e := range p.Edges {
		keys[i] = e.Key()
	}
	return keys
}

// ScoredPath is a path ranked by exposure within one query result.
type ScoredPath struct {
	ID string `json:"pathId"`
	Path
	exposure.Result
}

// frame is one step of a search branch. Frames are never modified after
// creation and children point at their parent, so every branch owns an
// immutable view of its path while sharing the common prefix.
type frame struct {
	parent *frame
	node   string
	edge   graph.Edge // edge used to reach node, unset at the root
	depth  int        // hops from the root
}

func root(id string) *frame {
	return &frame{node: id}
}

func (f *frame) extend(e graph.Edge) *frame {
	return &frame{parent: f, node: e.Target, edge: e, depth: f.depth + 1}
}

// contains reports whether id is already on the branch.
func (f *frame) contains(id string) bool {
	for p := f; p != nil; p = p.parent {
		if p.node == id {
			return true
		}
	}
	return false
}

// path materializes the branch from the root to f.
func (f *frame) path() Path {
	p := Path{
		Nodes:  make([]string, f.depth+1),
		Edges:  make([]graph.Edge, f.depth),
		Length: f.depth,
	}
	for cur := f; cur != nil; cur = cur.parent {
		p.Nodes[cur.depth] = cur.node
		if cur.parent != nil {
			p.Edges[cur.depth-1] = cur.edge
		}
	}
	return p
}
