package pathfind

import (
	"fmt"
	"sort"

	"github.com/linkscope/linkscope/internal/exposure"
	"github.com/linkscope/linkscope/internal/graph"
)

const (
	DefaultMaxDepth      = 4
	DefaultMaxTotalPaths = 15
	// DefaultMaxExpansions bounds the number of DFS frames expanded in one
	// enumeration. Dense graphs at high depth hit this before memory does.
	DefaultMaxExpansions = 250_000
	// perLengthQuota is how many extra paths each length contributes to the
	// final selection.
	perLengthQuota = 2
)

// Options bound an enumeration. Zero or negative MaxDepth or MaxTotalPaths
// produce an empty result; MaxExpansions <= 0 selects the default budget.
type Options struct {
	MaxDepth      int
	MaxTotalPaths int
	MaxExpansions int
}

// DefaultOptions returns the standard enumeration bounds.
func DefaultOptions() Options {
	return Options{
		MaxDepth:      DefaultMaxDepth,
		MaxTotalPaths: DefaultMaxTotalPaths,
		MaxExpansions: DefaultMaxExpansions,
	}
}

// Result is the outcome of FindAllPaths.
type Result struct {
	ShortestPath *ScoredPath  `json:"shortestPath"`
	Paths        []ScoredPath `json:"paths"`
	// Candidates is the number of distinct paths found before selection.
	Candidates int `json:"candidates"`
	// Truncated is set when the expansion budget stopped the search early.
	Truncated bool `json:"truncated,omitempty"`
}

// FindAllPaths enumerates every simple path from one node to another over
// the undirected view, up to opts.MaxDepth hops, and returns a ranked,
// length-stratified selection of at most opts.MaxTotalPaths of them.
//
// Unknown ids and unreachable targets yield an empty result, never an error.
func FindAllPaths(s *graph.Snapshot, from, to string, opts Options) Result {
	res := Result{Paths: []ScoredPath{}}
	if opts.MaxDepth <= 0 || opts.MaxTotalPaths <= 0 || !s.Has(from) || !s.Has(to) {
		return res
	}

	found, truncated := enumerate(s, from, to, opts.MaxDepth, budget(opts.MaxExpansions))
	res.Truncated = truncated

	ranked := rank(dedup(found))
	res.Candidates = len(ranked)

	res.Paths = selectPaths(ranked, opts.MaxTotalPaths)
	for i := range res.Paths {
		res.Paths[i].ID = fmt.Sprintf("path-%d", i+1)
	}
	if len(res.Paths) > 0 {
		shortest := res.Paths[0]
		res.ShortestPath = &shortest
	}
	return res
}

func budget(n int) int {
	if n <= 0 {
		return DefaultMaxExpansions
	}
	return n
}

// enumerate runs the depth-first search with an explicit stack. Children are
// pushed in reverse adjacency order so paths are discovered in the same
// order a recursive walk would find them.
func enumerate(s *graph.Snapshot, from, to string, maxDepth, maxExpansions int) ([]Path, bool) {
	var found []Path
	stack := []*frame{root(from)}
	expansions := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > 0 && f.node == to {
			found = append(found, f.path())
			continue
		}
		if f.depth >= maxDepth {
			continue
		}
		if expansions >= maxExpansions {
			return found, true
		}
		expansions++

		adj := s.Incident(f.node)
		for i := len(adj) - 1; i >= 0; i-- {
			if f.contains(adj[i].Target) {
				continue
			}
			stack = append(stack, f.extend(adj[i]))
		}
	}
	return found, false
}

// dedup drops paths whose ordered edge keys repeat an earlier path. This
// happens with parallel same-type edges or with A->B and B->A recorded
// separately, since both traverse as A->B in the undirected view.
func dedup(paths []Path) []Path {
	seen := graph.NewSeqSet[graph.EdgeKey]()
	out := paths[:0]
	for _, p := range paths {
		if seen.Add(p.Keys()) {
			out = append(out, p)
		}
	}
	return out
}

// rank scores every path and orders by length ascending, then exposure
// descending. Ties keep discovery order.
func rank(paths []Path) []ScoredPath {
	scored := make([]ScoredPath, len(paths))
	for i, p := range paths {
		scored[i] = ScoredPath{Path: p, Result: exposure.Score(p.Edges, p.Length)}
	}
	sortRanked(scored)
	return scored
}

func sortRanked(paths []ScoredPath) {
	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].Length != paths[j].Length {
			return paths[i].Length < paths[j].Length
		}
		return paths[i].Index > paths[j].Index
	})
}

// selectPaths keeps the best shortest path, then walks lengths in ascending
// order adding up to perLengthQuota not-yet-selected paths from each until
// limit is reached.
func selectPaths(ranked []ScoredPath, limit int) []ScoredPath {
	if len(ranked) == 0 || limit <= 0 {
		return []ScoredPath{}
	}

	chosen := make(map[int]bool, limit)
	picked := []int{0}
	chosen[0] = true

	for start := 0; start < len(ranked) && len(picked) < limit; {
		end := start
		for end < len(ranked) && ranked[end].Length == ranked[start].Length {
			end++
		}
		added := 0
		for i := start; i < end && added < perLengthQuota && len(picked) < limit; i++ {
			if chosen[i] {
				continue
			}
			chosen[i] = true
			picked = append(picked, i)
			added++
		}
		start = end
	}

	out := make([]ScoredPath, len(picked))
	for i, idx := range picked {
		out[i] = ranked[idx]
	}
	sortRanked(out)
	return out
}
