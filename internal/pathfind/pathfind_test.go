package pathfind

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkscope/linkscope/internal/graph"
)

func nodes(ids ...string) []graph.Node {
	out := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, graph.Node{ID: id, Label: id, Type: graph.NodeCompany})
	}
	return out
}

func edge(from, to string, rel graph.RelationType) graph.Edge {
	return graph.Edge{Source: from, Target: to, Type: rel}
}

// loopGraph is A->B (Ownership 100%), B->C, C->A, C->D.
func loopGraph() *graph.Snapshot {
	own := edge("A", "B", graph.RelOwnership)
	own.Pct = graph.Float(100)
	return graph.MustBuild(nodes("A", "B", "C", "D"), []graph.Edge{
		own,
		edge("B", "C", graph.RelPartnership),
		edge("C", "A", graph.RelSupplier),
		edge("C", "D", graph.RelClient),
	})
}

// fanGraph connects S to T through five two-hop routes of decreasing
// weight and one three-hop route.
func fanGraph() *graph.Snapshot {
	rels := []graph.RelationType{
		graph.RelOwnership, graph.RelCreditor, graph.RelClient, graph.RelPartnership, graph.RelBoardInterlock,
	}
	ns := nodes("S", "T", "X", "Y")
	var es []graph.Edge
	for i, rel := range rels {
		mid := fmt.Sprintf("M%d", i+1)
		ns = append(ns, graph.Node{ID: mid, Type: graph.NodeCompany})
		es = append(es, edge("S", mid, rel), edge(mid, "T", rel))
	}
	es = append(es,
		edge("S", "X", graph.RelSupplier),
		edge("X", "Y", graph.RelSupplier),
		edge("Y", "T", graph.RelSupplier),
	)
	return graph.MustBuild(ns, es)
}

func TestFindAllPaths_LoopScenario(t *testing.T) {
	res := FindAllPaths(loopGraph(), "A", "D", Options{MaxDepth: 4, MaxTotalPaths: 15})

	require.Len(t, res.Paths, 2)
	require.NotNil(t, res.ShortestPath)

	// A-C-D via the reversed C->A edge is the two-hop route
	assert.Equal(t, []string{"A", "C", "D"}, res.ShortestPath.Nodes)
	assert.Equal(t, 2, res.ShortestPath.Length)

	long := res.Paths[1]
	assert.Equal(t, []string{"A", "B", "C", "D"}, long.Nodes)
	assert.Equal(t, 3, long.Length)
	assert.InDelta(t, 17.75, long.Index, 1e-9)
	assert.Equal(t, 10.0, long.Breakdown.RelationshipWeightScore)
	assert.Equal(t, 10.0, long.Breakdown.OwnershipScore)
	assert.Equal(t, 0.0, long.Breakdown.ConfidencePenalty)
	assert.Equal(t, "100% ownership", long.Summary)

	assert.Equal(t, "path-1", res.Paths[0].ID)
	assert.Equal(t, "path-2", res.Paths[1].ID)
}

func TestFindAllPaths_DirectedOnlyChain(t *testing.T) {
	// without the C->A edge the only route is the three-hop chain
	own := edge("A", "B", graph.RelOwnership)
	own.Pct = graph.Float(100)
	s := graph.MustBuild(nodes("A", "B", "C", "D"), []graph.Edge{
		own,
		edge("B", "C", graph.RelPartnership),
		edge("C", "D", graph.RelClient),
	})

	res := FindAllPaths(s, "A", "D", DefaultOptions())

	require.Len(t, res.Paths, 1)
	assert.Equal(t, []string{"A", "B", "C", "D"}, res.ShortestPath.Nodes)
	assert.InDelta(t, 17.75, res.ShortestPath.Index, 1e-9)
}

func TestFindAllPaths_ReversedTraversalKeepsMetadata(t *testing.T) {
	s := graph.MustBuild(nodes("A", "B"), []graph.Edge{
		{Source: "B", Target: "A", Type: graph.RelCreditor, Amount: graph.Float(5_000_000)},
	})

	res := FindAllPaths(s, "A", "B", DefaultOptions())

	require.Len(t, res.Paths, 1)
	e := res.Paths[0].Edges[0]
	assert.Equal(t, "A", e.Source)
	assert.Equal(t, "B", e.Target)
	assert.Equal(t, graph.RelCreditor, e.Type)
	assert.Equal(t, "High exposure: $5.0M", res.Paths[0].Summary)
}

func TestFindAllPaths_SelectionPolicy(t *testing.T) {
	res := FindAllPaths(fanGraph(), "S", "T", DefaultOptions())

	assert.Equal(t, 6, res.Candidates)
	require.Len(t, res.Paths, 4)

	var mids []string
	for _, p := range res.Paths[:3] {
		assert.Equal(t, 2, p.Length)
		mids = append(mids, p.Nodes[1])
	}
	// best shortest path plus two more from the same length
	assert.Equal(t, []string{"M1", "M2", "M3"}, mids)
	assert.Equal(t, []string{"S", "X", "Y", "T"}, res.Paths[3].Nodes)
	assert.Equal(t, "M1", res.ShortestPath.Nodes[1])

	for i := 1; i < len(res.Paths); i++ {
		prev, cur := res.Paths[i-1], res.Paths[i]
		if prev.Length == cur.Length {
			assert.GreaterOrEqual(t, prev.Index, cur.Index)
		} else {
			assert.Less(t, prev.Length, cur.Length)
		}
	}
}

func TestFindAllPaths_MaxTotalPaths(t *testing.T) {
	res := FindAllPaths(fanGraph(), "S", "T", Options{MaxDepth: 4, MaxTotalPaths: 2})

	require.Len(t, res.Paths, 2)
	assert.Equal(t, "M1", res.Paths[0].Nodes[1])
	assert.Equal(t, "M2", res.Paths[1].Nodes[1])

	res = FindAllPaths(fanGraph(), "S", "T", Options{MaxDepth: 4, MaxTotalPaths: 1})
	require.Len(t, res.Paths, 1)
	assert.Equal(t, "M1", res.ShortestPath.Nodes[1])
}

func TestFindAllPaths_Dedup(t *testing.T) {
	s := graph.MustBuild(nodes("A", "B"), []graph.Edge{
		edge("A", "B", graph.RelClient),
		edge("A", "B", graph.RelClient),
		edge("B", "A", graph.RelClient),
		edge("A", "B", graph.RelSupplier),
	})

	res := FindAllPaths(s, "A", "B", DefaultOptions())

	require.Len(t, res.Paths, 2)
	assert.Equal(t, 2, res.Candidates)
	types := []graph.RelationType{res.Paths[0].Edges[0].Type, res.Paths[1].Edges[0].Type}
	assert.ElementsMatch(t, []graph.RelationType{graph.RelClient, graph.RelSupplier}, types)
}

func TestFindAllPaths_EmptyResults(t *testing.T) {
	s := loopGraph()
	tests := []struct {
		name     string
		from, to string
		opts     Options
	}{
		{"same node", "A", "A", DefaultOptions()},
		{"unknown source", "Z", "A", DefaultOptions()},
		{"unknown target", "A", "Z", DefaultOptions()},
		{"zero depth", "A", "D", Options{MaxDepth: 0, MaxTotalPaths: 15}},
		{"negative depth", "A", "D", Options{MaxDepth: -3, MaxTotalPaths: 15}},
		{"zero total", "A", "D", Options{MaxDepth: 4, MaxTotalPaths: 0}},
		{"depth excludes target", "A", "D", Options{MaxDepth: 1, MaxTotalPaths: 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FindAllPaths(s, tt.from, tt.to, tt.opts)
			assert.Empty(t, res.Paths)
			assert.NotNil(t, res.Paths)
			assert.Nil(t, res.ShortestPath)
		})
	}
}

func TestFindAllPaths_ExpansionBudget(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E", "F", "G"}
	var es []graph.Edge
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			es = append(es, edge(a, b, graph.RelPartnership))
		}
	}
	s := graph.MustBuild(nodes(ids...), es)

	res := FindAllPaths(s, "A", "G", Options{MaxDepth: 6, MaxTotalPaths: 15, MaxExpansions: 3})
	assert.True(t, res.Truncated)

	res = FindAllPaths(s, "A", "G", Options{MaxDepth: 6, MaxTotalPaths: 15})
	assert.False(t, res.Truncated)
	assert.NotEmpty(t, res.Paths)
}

func TestFindAllPaths_Properties(t *testing.T) {
	ids := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6", "n7"}
	rels := graph.RelationTypes
	var es []graph.Edge
	for i := range ids {
		for j := range ids {
			if i != j && (i*7+j*3)%4 == 0 {
				es = append(es, edge(ids[i], ids[j], rels[(i+j)%len(rels)]))
			}
		}
	}
	s := graph.MustBuild(nodes(ids...), es)

	for depth := 1; depth <= 5; depth++ {
		for _, target := range ids[1:] {
			res := FindAllPaths(s, "n0", target, Options{MaxDepth: depth, MaxTotalPaths: 15})

			keys := graph.NewSeqSet[graph.EdgeKey]()
			minLen := 0
			for _, p := range res.Paths {
				assert.LessOrEqual(t, p.Length, depth)
				assert.Equal(t, len(p.Nodes)-1, p.Length)
				assert.Equal(t, len(p.Edges), p.Length)
				assert.True(t, keys.Add(p.Keys()), "duplicate edge sequence %v", p.Nodes)

				seen := make(map[string]bool)
				for _, id := range p.Nodes {
					assert.False(t, seen[id], "node %s repeated in %v", id, p.Nodes)
					seen[id] = true
				}
				for i, e := range p.Edges {
					assert.Equal(t, p.Nodes[i], e.Source)
					assert.Equal(t, p.Nodes[i+1], e.Target)
				}
				if minLen == 0 || p.Length < minLen {
					minLen = p.Length
				}
			}
			if len(res.Paths) == 0 {
				assert.Nil(t, res.ShortestPath)
			} else {
				require.NotNil(t, res.ShortestPath)
				assert.Equal(t, minLen, res.ShortestPath.Length)
			}
		}
	}
}

func TestFindShortestPath(t *testing.T) {
	s := loopGraph()

	p, ok := FindShortestPath(s, "A", "D", 6)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "C", "D"}, p.Nodes)
	assert.Equal(t, 2, p.Length)

	_, ok = FindShortestPath(s, "A", "D", 1)
	assert.False(t, ok, "depth bound should exclude the two-hop path")

	_, ok = FindShortestPath(s, "A", "A", 6)
	assert.False(t, ok)

	_, ok = FindShortestPath(s, "A", "missing", 6)
	assert.False(t, ok)

	_, ok = FindShortestPath(s, "A", "D", 0)
	assert.False(t, ok)
}

func TestFindPaths_LegacyPruning(t *testing.T) {
	s := graph.MustBuild(nodes("A", "B", "C", "D", "T"), []graph.Edge{
		edge("A", "B", graph.RelClient),
		edge("A", "C", graph.RelClient),
		edge("B", "D", graph.RelClient),
		edge("C", "D", graph.RelClient),
		edge("D", "T", graph.RelClient),
	})

	legacy := FindPaths(s, "A", "T", 4)
	require.Len(t, legacy, 1)
	assert.Equal(t, []string{"A", "B", "D", "T"}, legacy[0].Nodes)

	// the exhaustive engine also finds the route through C
	full := FindAllPaths(s, "A", "T", DefaultOptions())
	assert.Len(t, full.Paths, 2)
}

func TestFindPaths_Cap(t *testing.T) {
	ns := nodes("S", "T")
	var es []graph.Edge
	for i := 0; i < 15; i++ {
		mid := fmt.Sprintf("M%02d", i)
		ns = append(ns, graph.Node{ID: mid})
		es = append(es, edge("S", mid, graph.RelClient), edge(mid, "T", graph.RelClient))
	}
	s := graph.MustBuild(ns, es)

	paths := FindPaths(s, "S", "T", 4)
	assert.Len(t, paths, LegacyMaxResults)
	for _, p := range paths {
		assert.Equal(t, 2, p.Length)
	}

	assert.Empty(t, FindPaths(s, "S", "T", 0))
	assert.Empty(t, FindPaths(s, "S", "nowhere", 4))
}
