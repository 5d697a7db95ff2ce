package query

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/linkscope/linkscope/internal/cycles"
	"github.com/linkscope/linkscope/internal/exposure"
	"github.com/linkscope/linkscope/internal/pathfind"
)

// PathsQuery asks for the ranked paths between two entities. Bounds are
// used as given: a zero or negative depth or path count yields no paths.
type PathsQuery struct {
	From     string
	To       string
	MaxDepth int
	MaxPaths int
}

// PathsResult is the ranked path selection for one query.
type PathsResult struct {
	QueryID      string                `json:"queryId"`
	ShortestPath *pathfind.ScoredPath  `json:"shortestPath"`
	Paths        []pathfind.ScoredPath `json:"paths"`
	Candidates   int                   `json:"candidates"`
	Truncated    bool                  `json:"truncated,omitempty"`
}

// Paths enumerates and ranks the paths between q.From and q.To.
func (s *Service) Paths(ctx context.Context, q PathsQuery) (PathsResult, error) {
	depth := s.clamp(KindPaths, q.MaxDepth)
	snap, t, err := s.begin(ctx, KindPaths,
		map[string]any{"from": q.From, "to": q.To, "max_depth": depth, "max_paths": q.MaxPaths},
		attribute.String("query.from", q.From),
		attribute.String("query.to", q.To),
		attribute.Int("query.max_depth", depth),
		attribute.Int("query.max_paths", q.MaxPaths),
	)
	if err != nil {
		return PathsResult{}, err
	}

	res := pathfind.FindAllPaths(snap, q.From, q.To, pathfind.Options{
		MaxDepth:      depth,
		MaxTotalPaths: q.MaxPaths,
		MaxExpansions: s.limits.Paths.MaxExpansions,
	})
	if res.Truncated {
		s.logger.Warn("path search hit its expansion budget",
			"query_id", t.id, "from", q.From, "to", q.To, "budget", s.limits.Paths.MaxExpansions)
	}
	t.finish(len(res.Paths), res.Candidates, res.Truncated, nil)

	return PathsResult{
		QueryID:      t.id,
		ShortestPath: res.ShortestPath,
		Paths:        res.Paths,
		Candidates:   res.Candidates,
		Truncated:    res.Truncated,
	}, nil
}

// ShortestResult holds the fewest-hop path, if any, with its exposure score.
type ShortestResult struct {
	QueryID string               `json:"queryId"`
	Path    *pathfind.ScoredPath `json:"path"`
}

// ShortestPath finds one fewest-hop path over the undirected view.
func (s *Service) ShortestPath(ctx context.Context, from, to string, maxDepth int) (ShortestResult, error) {
	depth := s.clamp(KindShortest, maxDepth)
	snap, t, err := s.begin(ctx, KindShortest,
		map[string]any{"from": from, "to": to, "max_depth": depth},
		attribute.String("query.from", from),
		attribute.String("query.to", to),
		attribute.Int("query.max_depth", depth),
	)
	if err != nil {
		return ShortestResult{}, err
	}

	out := ShortestResult{QueryID: t.id}
	if p, ok := pathfind.FindShortestPath(snap, from, to, depth); ok {
		out.Path = &pathfind.ScoredPath{
			ID:     "path-1",
			Path:   p,
			Result: exposure.Score(p.Edges, p.Length),
		}
	}
	found := 0
	if out.Path != nil {
		found = 1
	}
	t.finish(found, found, false, nil)
	return out, nil
}

// LegacyResult holds the paths found by the breadth-first multi-path search.
type LegacyResult struct {
	QueryID string          `json:"queryId"`
	Paths   []pathfind.Path `json:"paths"`
	Capped  bool            `json:"capped"`
}

// LegacyPaths runs the breadth-first multi-path search, which prunes every
// route through an already visited intermediate node.
func (s *Service) LegacyPaths(ctx context.Context, from, to string, maxDepth int) (LegacyResult, error) {
	depth := s.clamp(KindLegacy, maxDepth)
	snap, t, err := s.begin(ctx, KindLegacy,
		map[string]any{"from": from, "to": to, "max_depth": depth},
		attribute.String("query.from", from),
		attribute.String("query.to", to),
		attribute.Int("query.max_depth", depth),
	)
	if err != nil {
		return LegacyResult{}, err
	}

	paths := pathfind.FindPaths(snap, from, to, depth)
	capped := len(paths) >= pathfind.LegacyMaxResults
	t.finish(len(paths), len(paths), capped, nil)
	return LegacyResult{QueryID: t.id, Paths: paths, Capped: capped}, nil
}

// CycleQuery asks for the directed cycles through Node.
type CycleQuery struct {
	Node      string
	MaxDepth  int
	MaxCycles int
	// Detailed attaches the edge of every hop.
	Detailed bool
}

// CyclesResult holds either plain or detailed cycles, never both.
type CyclesResult struct {
	QueryID    string                 `json:"queryId"`
	Cycles     []cycles.Cycle         `json:"cycles,omitempty"`
	Detailed   []cycles.DetailedCycle `json:"detailedCycles,omitempty"`
	TotalFound int                    `json:"totalFound"`
	Capped     bool                   `json:"capped"` // stopped at MaxCycles; more may exist
}

// Cycles finds the simple directed cycles through q.Node.
func (s *Service) Cycles(ctx context.Context, q CycleQuery) (CyclesResult, error) {
	kind := KindCycles
	if q.Detailed {
		kind = KindDetailedCycles
	}
	depth := s.clamp(kind, q.MaxDepth)
	snap, t, err := s.begin(ctx, kind,
		map[string]any{"node": q.Node, "max_depth": depth, "max_cycles": q.MaxCycles},
		attribute.String("query.node", q.Node),
		attribute.Int("query.max_depth", depth),
		attribute.Int("query.max_cycles", q.MaxCycles),
	)
	if err != nil {
		return CyclesResult{}, err
	}

	out := CyclesResult{QueryID: t.id}
	if q.Detailed {
		out.Detailed = cycles.FindDetailedCycles(snap, q.Node, depth, q.MaxCycles)
		out.TotalFound = len(out.Detailed)
	} else {
		out.Cycles = cycles.FindCycles(snap, q.Node, depth, q.MaxCycles)
		out.TotalFound = len(out.Cycles)
	}
	out.Capped = q.MaxCycles > 0 && out.TotalFound >= q.MaxCycles

	t.finish(out.TotalFound, out.TotalFound, out.Capped, nil)
	return out, nil
}
