// Package export renders query results as Graphviz DOT, Mermaid, JSON or
// plain text.
package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/linkscope/linkscope/internal/cycles"
	"github.com/linkscope/linkscope/internal/graph"
	"github.com/linkscope/linkscope/internal/pathfind"
)

// Format selects an output rendering.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatDOT, FormatMermaid:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, dot or mermaid)", s)
	}
}

// hop is one rendered edge, shared by path and cycle renderings.
type hop struct {
	edge  graph.Edge
	group string
}

// PathsDOT generates a Graphviz DOT representation of path results. Each
// path becomes a cluster so that parallel routes stay visually separate.
func PathsDOT(s *graph.Snapshot, paths []pathfind.ScoredPath) string {
	var b strings.Builder
	b.WriteString("digraph paths {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	writeDOTNodes(&b, s, pathNodes(paths))

	for _, p := range paths {
		b.WriteString(fmt.Sprintf("  // %s exposure=%.2f %s\n", p.ID, p.Index, p.Summary))
		for _, e := range p.Edges {
			writeDOTEdge(&b, hop{edge: e, group: p.ID})
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// CyclesDOT generates a Graphviz DOT representation of detailed cycles.
func CyclesDOT(s *graph.Snapshot, cs []cycles.DetailedCycle) string {
	var b strings.Builder
	b.WriteString("digraph cycles {\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	var ids []string
	for _, c := range cs {
		ids = append(ids, c.Path...)
	}
	writeDOTNodes(&b, s, ids)

	for i, c := range cs {
		b.WriteString(fmt.Sprintf("  // cycle %d length=%d\n", i+1, c.Length))
		for _, e := range c.Edges {
			writeDOTEdge(&b, hop{edge: e, group: fmt.Sprintf("cycle-%d", i+1)})
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// PathsMermaid generates a Mermaid flowchart of path results.
func PathsMermaid(s *graph.Snapshot, paths []pathfind.ScoredPath) string {
	var b strings.Builder
	b.WriteString("graph LR\n")
	writeMermaidNodes(&b, s, pathNodes(paths))
	for _, p := range paths {
		b.WriteString(fmt.Sprintf("  %%%% %s exposure=%.2f\n", p.ID, p.Index))
		for _, e := range p.Edges {
			writeMermaidEdge(&b, e)
		}
	}
	return b.String()
}

// CyclesMermaid generates a Mermaid flowchart of detailed cycles.
func CyclesMermaid(s *graph.Snapshot, cs []cycles.DetailedCycle) string {
	var b strings.Builder
	b.WriteString("graph LR\n")
	var ids []string
	for _, c := range cs {
		ids = append(ids, c.Path...)
	}
	writeMermaidNodes(&b, s, ids)
	for i, c := range cs {
		b.WriteString(fmt.Sprintf("  %%%% cycle %d\n", i+1))
		for _, e := range c.Edges {
			writeMermaidEdge(&b, e)
		}
	}
	return b.String()
}

// JSON serializes any result value with indentation.
func JSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// FormatPaths returns a human-readable listing of path results.
func FormatPaths(s *graph.Snapshot, paths []pathfind.ScoredPath) string {
	if len(paths) == 0 {
		return "No paths found.\n"
	}
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(fmt.Sprintf("%s  length=%d  exposure=%.2f  %s\n", p.ID, p.Length, p.Index, p.Summary))
		b.WriteString("  " + chain(s, p.Nodes, p.Edges) + "\n")
	}
	return b.String()
}

// FormatPlainPaths lists unscored paths, as returned by the BFS searches.
func FormatPlainPaths(s *graph.Snapshot, paths []pathfind.Path) string {
	if len(paths) == 0 {
		return "No paths found.\n"
	}
	var b strings.Builder
	for i, p := range paths {
		b.WriteString(fmt.Sprintf("%d: length=%d  %s\n", i+1, p.Length, chain(s, p.Nodes, p.Edges)))
	}
	return b.String()
}

// FormatCycles returns a human-readable listing of detailed cycles.
func FormatCycles(s *graph.Snapshot, cs []cycles.DetailedCycle) string {
	if len(cs) == 0 {
		return "No cycles found.\n"
	}
	var b strings.Builder
	for i, c := range cs {
		b.WriteString(fmt.Sprintf("%d: length=%d  %s\n", i+1, c.Length, chain(s, c.Path, c.Edges)))
	}
	return b.String()
}

// FormatCyclePaths lists cycles without edge detail.
func FormatCyclePaths(s *graph.Snapshot, cs []cycles.Cycle) string {
	if len(cs) == 0 {
		return "No cycles found.\n"
	}
	var b strings.Builder
	for i, c := range cs {
		labels := make([]string, len(c.Path))
		for j, id := range c.Path {
			labels[j] = s.Label(id)
		}
		b.WriteString(fmt.Sprintf("%d: length=%d  %s\n", i+1, c.Length, strings.Join(labels, " -> ")))
	}
	return b.String()
}

// FormatStats returns a human-readable summary of snapshot statistics.
func FormatStats(st graph.Stats) string {
	var b strings.Builder
	b.WriteString("Relationship Graph Statistics\n")
	b.WriteString("=============================\n\n")
	b.WriteString(fmt.Sprintf("Nodes:          %d total\n", st.TotalNodes))
	for _, t := range graph.NodeTypes {
		if n := st.NodesByType[t]; n > 0 {
			b.WriteString(fmt.Sprintf("  %-13s %d\n", string(t)+":", n))
		}
	}
	b.WriteString(fmt.Sprintf("Edges:          %d total\n", st.TotalEdges))
	for _, t := range sortedRelations(st.EdgesByType) {
		b.WriteString(fmt.Sprintf("  %-15s %d\n", string(t)+":", st.EdgesByType[t]))
	}
	b.WriteString(fmt.Sprintf("Max Out-Degree: %d\n", st.MaxOutDegree))
	b.WriteString(fmt.Sprintf("Max In-Degree:  %d\n", st.MaxInDegree))
	if st.HotspotNode != "" {
		b.WriteString(fmt.Sprintf("Hotspot:        %s\n", st.HotspotNode))
	}
	b.WriteString(fmt.Sprintf("Components:     %d\n", st.ConnectedComponents))
	b.WriteString(fmt.Sprintf("Isolated:       %d\n", st.IsolatedNodes))
	return b.String()
}

// chain renders "A -[Type]-> B -[Type]-> C" using node labels.
func chain(s *graph.Snapshot, nodes []string, edges []graph.Edge) string {
	if len(nodes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(s.Label(nodes[0]))
	for i, e := range edges {
		if i+1 >= len(nodes) {
			break
		}
		b.WriteString(" -[" + edgeLabel(e) + "]-> " + s.Label(nodes[i+1]))
	}
	return b.String()
}

func edgeLabel(e graph.Edge) string {
	switch {
	case e.Pct != nil:
		return fmt.Sprintf("%s %g%%", e.Type, *e.Pct)
	case e.Amount != nil:
		return fmt.Sprintf("%s $%s", e.Type, compactMoney(*e.Amount))
	case e.RecurringPurchaseUSD != nil:
		return fmt.Sprintf("%s $%s/yr", e.Type, compactMoney(*e.RecurringPurchaseUSD))
	default:
		return string(e.Type)
	}
}

func compactMoney(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.0fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func pathNodes(paths []pathfind.ScoredPath) []string {
	var ids []string
	for _, p := range paths {
		ids = append(ids, p.Nodes...)
	}
	return ids
}

func writeDOTNodes(b *strings.Builder, s *graph.Snapshot, ids []string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		n, _ := s.Node(id)
		b.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\" shape=%s style=filled fillcolor=\"%s\"];\n",
			escapeDOT(id), escapeDOT(s.Label(id)), nodeShape(n.Type), nodeColor(n.Type)))
	}
	b.WriteString("\n")
}

func writeDOTEdge(b *strings.Builder, h hop) {
	e := h.edge
	b.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"%s\" style=%s color=\"%s\" tooltip=\"%s\"];\n",
		escapeDOT(e.Source), escapeDOT(e.Target), escapeDOT(edgeLabel(e)), edgeStyle(e.Type), edgeColor(e.Type), h.group))
}

func writeMermaidNodes(b *strings.Builder, s *graph.Snapshot, ids []string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		n, _ := s.Node(id)
		b.WriteString(fmt.Sprintf("  %s%s\n", sanitizeMermaidID(id), mermaidNodeShape(n.Type, s.Label(id))))
	}
}

func writeMermaidEdge(b *strings.Builder, e graph.Edge) {
	b.WriteString(fmt.Sprintf("  %s %s|%s| %s\n",
		sanitizeMermaidID(e.Source), mermaidArrow(e.Type), strings.ReplaceAll(edgeLabel(e), "|", "/"), sanitizeMermaidID(e.Target)))
}

func sortedRelations(m map[graph.RelationType]int) []graph.RelationType {
	out := make([]graph.RelationType, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`)
}

func sanitizeMermaidID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func nodeShape(t graph.NodeType) string {
	switch t {
	case graph.NodeCompany:
		return "box"
	case graph.NodePerson:
		return "ellipse"
	case graph.NodeInstitution:
		return "box3d"
	case graph.NodeFund:
		return "diamond"
	default:
		return "box"
	}
}

func nodeColor(t graph.NodeType) string {
	switch t {
	case graph.NodeCompany:
		return "#1f6feb"
	case graph.NodePerson:
		return "#238636"
	case graph.NodeInstitution:
		return "#8957e5"
	case graph.NodeFund:
		return "#d29922"
	default:
		return "#30363d"
	}
}

func edgeStyle(t graph.RelationType) string {
	switch t {
	case graph.RelOwnership:
		return "bold"
	case graph.RelCreditor, graph.RelDebtor, graph.RelSwaps:
		return "solid"
	case graph.RelPartnership, graph.RelJointVenture, graph.RelLicensing:
		return "dashed"
	case graph.RelBoardInterlock, graph.RelCompetitor:
		return "dotted"
	default:
		return "solid"
	}
}

func edgeColor(t graph.RelationType) string {
	switch t {
	case graph.RelOwnership:
		return "#f85149"
	case graph.RelCreditor, graph.RelDebtor, graph.RelSwaps:
		return "#d29922"
	case graph.RelClient, graph.RelSupplier:
		return "#3fb950"
	case graph.RelPartnership, graph.RelJointVenture, graph.RelLicensing:
		return "#58a6ff"
	default:
		return "#8b949e"
	}
}

func mermaidNodeShape(t graph.NodeType, label string) string {
	label = strings.ReplaceAll(label, `"`, "'")
	switch t {
	case graph.NodePerson:
		return fmt.Sprintf("([\"%s\"])", label)
	case graph.NodeInstitution:
		return fmt.Sprintf("[[\"%s\"]]", label)
	case graph.NodeFund:
		return fmt.Sprintf("{\"%s\"}", label)
	default:
		return fmt.Sprintf("[\"%s\"]", label)
	}
}

func mermaidArrow(t graph.RelationType) string {
	switch t {
	case graph.RelOwnership:
		return "==>"
	case graph.RelPartnership, graph.RelJointVenture, graph.RelLicensing:
		return "-.->"
	default:
		return "-->"
	}
}
