package graph

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyID       = errors.New("empty id")
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrDanglingEdge  = errors.New("edge references unknown node")
)

// Snapshot is an immutable node/edge set with precomputed adjacency views.
// It is never mutated after Build returns, so any number of goroutines may
// query it concurrently. Slices returned by its accessors must not be modified.
type Snapshot struct {
	nodes      []Node
	edges      []Edge
	index      map[string]int
	directed   map[string][]Edge
	undirected map[string][]Edge
}

// Build validates nodes and edges and constructs a snapshot in O(V+E).
// Adjacency lists keep the order in which edges were supplied.
func Build(nodes []Node, edges []Edge) (*Snapshot, error) {
	s := &Snapshot{
		nodes:      make([]Node, len(nodes)),
		edges:      make([]Edge, len(edges)),
		index:      make(map[string]int, len(nodes)),
		directed:   make(map[string][]Edge, len(nodes)),
		undirected: make(map[string][]Edge, len(nodes)),
	}
	copy(s.nodes, nodes)
	copy(s.edges, edges)

	for i, n := range s.nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %d: %w", i, ErrEmptyID)
		}
		if _, ok := s.index[n.ID]; ok {
			return nil, fmt.Errorf("node %q: %w", n.ID, ErrDuplicateNode)
		}
		s.index[n.ID] = i
	}

	for i, e := range s.edges {
		if e.Source == "" || e.Target == "" {
			return nil, fmt.Errorf("edge %d: %w", i, ErrEmptyID)
		}
		if _, ok := s.index[e.Source]; !ok {
			return nil, fmt.Errorf("edge %d source %q: %w", i, e.Source, ErrDanglingEdge)
		}
		if _, ok := s.index[e.Target]; !ok {
			return nil, fmt.Errorf("edge %d target %q: %w", i, e.Target, ErrDanglingEdge)
		}
		s.directed[e.Source] = append(s.directed[e.Source], e)
		s.undirected[e.Source] = append(s.undirected[e.Source], e)
		s.undirected[e.Target] = append(s.undirected[e.Target], e.Reversed())
	}

	return s, nil
}

// MustBuild is like Build but panics on invalid input.
func MustBuild(nodes []Node, edges []Edge) *Snapshot {
	s, err := Build(nodes, edges)
	if err != nil {
		panic(err)
	}
	return s
}

// Nodes returns all nodes in load order.
func (s *Snapshot) Nodes() []Node { return s.nodes }

// Edges returns all edges in load order.
func (s *Snapshot) Edges() []Edge { return s.edges }

// Node looks up a node by id.
func (s *Snapshot) Node(id string) (Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[i], true
}

// Has reports whether id is a node of the snapshot.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Outgoing returns the edges whose source is id.
func (s *Snapshot) Outgoing(id string) []Edge { return s.directed[id] }

// Incident returns every edge touching id, oriented so that Source == id.
// Edges recorded in the other direction appear reversed.
func (s *Snapshot) Incident(id string) []Edge { return s.undirected[id] }

// Label returns the node label, falling back to the id.
func (s *Snapshot) Label(id string) string {
	if n, ok := s.Node(id); ok && n.Label != "" {
		return n.Label
	}
	return id
}

// Stats computes degree, type and component metrics for the snapshot.
func (s *Snapshot) Stats() Stats {
	st := Stats{
		TotalNodes:  len(s.nodes),
		TotalEdges:  len(s.edges),
		NodesByType: make(map[NodeType]int),
		EdgesByType: make(map[RelationType]int),
	}

	for _, n := range s.nodes {
		st.NodesByType[n.Type]++
	}

	inDegree := make(map[string]int)
	for _, e := range s.edges {
		st.EdgesByType[e.Type]++
		inDegree[e.Target]++
	}

	hotspotDegree := 0
	for _, n := range s.nodes {
		out := len(s.directed[n.ID])
		if out > st.MaxOutDegree {
			st.MaxOutDegree = out
		}
		if in := inDegree[n.ID]; in > st.MaxInDegree {
			st.MaxInDegree = in
		}
		// nodes are walked in load order, so ties keep the earliest node
		incident := len(s.undirected[n.ID])
		if incident > hotspotDegree {
			hotspotDegree = incident
			st.HotspotNode = n.ID
		}
		if incident == 0 {
			st.IsolatedNodes++
		}
	}

	st.ConnectedComponents = s.countComponents()
	return st
}

// countComponents counts weakly connected components via union-find
func (s *Snapshot) countComponents() int {
	parent := make(map[string]string, len(s.nodes))
	find := func(x string) string {
		if parent[x] == "" {
			parent[x] = x
		}
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b string) {
		fa, fb := find(a), find(b)
		if fa != fb {
			parent[fa] = fb
		}
	}

	for _, n := range s.nodes {
		find(n.ID)
	}
	for _, e := range s.edges {
		union(e.Source, e.Target)
	}

	roots := make(map[string]bool)
	for _, n := range s.nodes {
		roots[find(n.ID)] = true
	}
	return len(roots)
}
