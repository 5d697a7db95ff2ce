package main

import (
	"fmt"
	"io"

	"github.com/linkscope/linkscope/internal/export"
	"github.com/linkscope/linkscope/internal/exposure"
	"github.com/linkscope/linkscope/internal/graph"
	"github.com/linkscope/linkscope/internal/pathfind"
	"github.com/linkscope/linkscope/internal/query"
)

func writeJSON(w io.Writer, v any) error {
	data, err := export.JSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func writeGraph(w io.Writer, s *graph.Snapshot, paths []pathfind.ScoredPath, f export.Format) error {
	var out string
	switch f {
	case export.FormatDOT:
		out = export.PathsDOT(s, paths)
	case export.FormatMermaid:
		out = export.PathsMermaid(s, paths)
	default:
		out = export.FormatPaths(s, paths)
	}
	_, err := io.WriteString(w, out)
	return err
}

func renderPaths(w io.Writer, s *graph.Snapshot, res query.PathsResult, f export.Format) error {
	if f == export.FormatJSON {
		return writeJSON(w, res)
	}
	if res.Truncated && f == export.FormatText {
		fmt.Fprintln(w, "(search stopped at its expansion budget; more paths may exist)")
	}
	return writeGraph(w, s, res.Paths, f)
}

func renderShortest(w io.Writer, s *graph.Snapshot, res query.ShortestResult, f export.Format) error {
	if f == export.FormatJSON {
		return writeJSON(w, res)
	}
	var paths []pathfind.ScoredPath
	if res.Path != nil {
		paths = append(paths, *res.Path)
	}
	return writeGraph(w, s, paths, f)
}

// renderLegacy prints unscored paths as plain text. The graph renderers
// take scored paths, so legacy results are scored on the way out.
func renderLegacy(w io.Writer, s *graph.Snapshot, res query.LegacyResult, f export.Format) error {
	switch f {
	case export.FormatJSON:
		return writeJSON(w, res)
	case export.FormatText:
		if _, err := io.WriteString(w, export.FormatPlainPaths(s, res.Paths)); err != nil {
			return err
		}
		if res.Capped {
			_, err := fmt.Fprintf(w, "(stopped at %d paths)\n", pathfind.LegacyMaxResults)
			return err
		}
		return nil
	}
	scored := make([]pathfind.ScoredPath, len(res.Paths))
	for i, p := range res.Paths {
		scored[i] = pathfind.ScoredPath{
			ID:     fmt.Sprintf("path-%d", i+1),
			Path:   p,
			Result: exposure.Score(p.Edges, p.Length),
		}
	}
	return writeGraph(w, s, scored, f)
}

func renderCycles(w io.Writer, s *graph.Snapshot, res query.CyclesResult, f export.Format) error {
	var out string
	switch f {
	case export.FormatJSON:
		return writeJSON(w, res)
	case export.FormatDOT:
		out = export.CyclesDOT(s, res.Detailed)
	case export.FormatMermaid:
		out = export.CyclesMermaid(s, res.Detailed)
	default:
		if res.Detailed != nil {
			out = export.FormatCycles(s, res.Detailed)
		} else {
			out = export.FormatCyclePaths(s, res.Cycles)
		}
	}
	if _, err := io.WriteString(w, out); err != nil {
		return err
	}
	if res.Capped && f == export.FormatText {
		_, err := fmt.Fprintf(w, "(stopped at %d cycles)\n", res.TotalFound)
		return err
	}
	return nil
}

func renderStats(w io.Writer, st graph.Stats, f export.Format) error {
	switch f {
	case export.FormatJSON:
		return writeJSON(w, st)
	case export.FormatText:
		_, err := io.WriteString(w, export.FormatStats(st))
		return err
	default:
		return fmt.Errorf("stats cannot be rendered as %s", f)
	}
}
