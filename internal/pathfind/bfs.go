package pathfind

import "github.com/linkscope/linkscope/internal/graph"

// LegacyMaxResults caps the number of paths FindPaths collects.
const LegacyMaxResults = 10

// FindShortestPath returns a minimum-hop path between two nodes over the
// undirected view, or false if none exists within maxDepth hops.
func FindShortestPath(s *graph.Snapshot, from, to string, maxDepth int) (Path, bool) {
	if maxDepth <= 0 || !s.Has(from) || !s.Has(to) {
		return Path{}, false
	}

	visited := map[string]bool{from: true}
	queue := []*frame{root(from)}

	for head := 0; head < len(queue); head++ {
		f := queue[head]
		if f.depth >= maxDepth {
			continue
		}
		for _, e := range s.Incident(f.node) {
			if visited[e.Target] {
				continue
			}
			next := f.extend(e)
			if e.Target == to {
				return next.path(), true
			}
			visited[e.Target] = true
			queue = append(queue, next)
		}
	}
	return Path{}, false
}

// FindPaths is the breadth-first multi-path search kept for compatibility
// with older callers. A node is marked visited the first time any multi-hop
// path is dequeued at it, so later routes through that node are dropped even
// when they would reach the target. Use FindAllPaths for complete results.
func FindPaths(s *graph.Snapshot, from, to string, maxDepth int) []Path {
	results := []Path{}
	if maxDepth <= 0 || !s.Has(from) || !s.Has(to) {
		return results
	}

	visited := make(map[string]bool)
	queue := []*frame{root(from)}

	for head := 0; head < len(queue) && len(results) < LegacyMaxResults; head++ {
		f := queue[head]
		if f.depth > 0 && f.node == to {
			results = append(results, f.path())
			continue
		}
		if f.depth > 0 {
			if visited[f.node] {
				continue
			}
			visited[f.node] = true
		}
		if f.depth >= maxDepth {
			continue
		}
		for _, e := range s.Incident(f.node) {
			if f.contains(e.Target) {
				continue
			}
			queue = append(queue, f.extend(e))
		}
	}
	return results
}
