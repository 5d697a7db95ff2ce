package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/linkscope/linkscope/internal/cycles"
	"github.com/linkscope/linkscope/internal/graph"
	"github.com/linkscope/linkscope/internal/pathfind"
)

func testSnapshot() *graph.Snapshot {
	return graph.MustBuild([]graph.Node{
		{ID: "acme", Label: "Acme \"Holdings\"", Type: graph.NodeCompany},
		{ID: "jdoe", Label: "Jane Doe", Type: graph.NodePerson},
		{ID: "bank-1", Label: "First Bank", Type: graph.NodeInstitution},
	}, []graph.Edge{
		{Source: "jdoe", Target: "acme", Type: graph.RelOwnership, Pct: graph.Float(60)},
		{Source: "acme", Target: "bank-1", Type: graph.RelDebtor, Amount: graph.Float(2_500_000)},
		{Source: "bank-1", Target: "jdoe", Type: graph.RelCreditor},
	})
}

func testPaths(s *graph.Snapshot) []pathfind.ScoredPath {
	return pathfind.FindAllPaths(s, "jdoe", "bank-1", pathfind.DefaultOptions()).Paths
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" dot ", FormatDOT, false},
		{"mermaid", FormatMermaid, false},
		{"svg", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPathsDOT(t *testing.T) {
	s := testSnapshot()
	dot := PathsDOT(s, testPaths(s))

	if !strings.Contains(dot, "digraph paths") {
		t.Error("DOT output should contain 'digraph paths'")
	}
	if !strings.Contains(dot, `"jdoe" -> "acme"`) {
		t.Error("DOT output should contain the ownership hop")
	}
	if !strings.Contains(dot, `Acme \"Holdings\"`) {
		t.Error("DOT output should escape quotes in labels")
	}
	if !strings.Contains(dot, "Ownership 60%") {
		t.Error("DOT output should label edges with their metadata")
	}
	if !strings.Contains(dot, "shape=ellipse") {
		t.Error("person nodes should render as ellipses")
	}
	if strings.Count(dot, `"acme" [label=`) != 1 {
		t.Error("nodes shared by several paths should be declared once")
	}
}

func TestPathsMermaid(t *testing.T) {
	s := testSnapshot()
	m := PathsMermaid(s, testPaths(s))

	if !strings.HasPrefix(m, "graph LR\n") {
		t.Error("Mermaid output should start with 'graph LR'")
	}
	if !strings.Contains(m, "jdoe ==>|Ownership 60%| acme") {
		t.Errorf("Mermaid output missing ownership arrow:\n%s", m)
	}
	if !strings.Contains(m, "bank_1") {
		t.Error("Mermaid ids should be sanitized")
	}
	if !strings.Contains(m, "%% path-1") {
		t.Error("Mermaid output should annotate paths")
	}
}

func TestCyclesRendering(t *testing.T) {
	s := testSnapshot()
	cs := cycles.FindDetailedCycles(s, "jdoe", cycles.DefaultDetailedMaxDepth, cycles.DefaultMaxCycles)
	if len(cs) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cs))
	}

	dot := CyclesDOT(s, cs)
	if !strings.Contains(dot, "digraph cycles") || !strings.Contains(dot, `"bank-1" -> "jdoe"`) {
		t.Errorf("unexpected DOT output:\n%s", dot)
	}

	m := CyclesMermaid(s, cs)
	if !strings.Contains(m, "%% cycle 1") {
		t.Errorf("unexpected Mermaid output:\n%s", m)
	}

	plain := FormatCyclePaths(s, cycles.FindCycles(s, "jdoe", cycles.DefaultMaxDepth, cycles.DefaultMaxCycles))
	if plain != "1: length=3  Jane Doe -> Acme \"Holdings\" -> First Bank -> Jane Doe\n" {
		t.Errorf("FormatCyclePaths: got %q", plain)
	}

	text := FormatCycles(s, cs)
	want := "1: length=3  Jane Doe -[Ownership 60%]-> Acme \"Holdings\" -[Debtor $2.5M]-> First Bank -[Creditor]-> Jane Doe\n"
	if text != want {
		t.Errorf("FormatCycles:\n got %q\nwant %q", text, want)
	}
}

func TestFormatPaths(t *testing.T) {
	s := testSnapshot()
	out := FormatPaths(s, testPaths(s))

	if !strings.Contains(out, "path-1  length=1") {
		t.Errorf("expected direct path first:\n%s", out)
	}
	if !strings.Contains(out, "Jane Doe -[Creditor]-> First Bank") {
		t.Errorf("expected reversed creditor hop:\n%s", out)
	}

	if FormatPaths(s, nil) != "No paths found.\n" {
		t.Error("expected empty message")
	}
	if FormatPlainPaths(s, nil) != "No paths found.\n" {
		t.Error("expected empty message")
	}
	if FormatCyclePaths(s, nil) != "No cycles found.\n" {
		t.Error("expected empty message")
	}
	if FormatCycles(s, nil) != "No cycles found.\n" {
		t.Error("expected empty message")
	}
}

func TestFormatPlainPaths(t *testing.T) {
	s := testSnapshot()
	p, ok := pathfind.FindShortestPath(s, "acme", "jdoe", 4)
	if !ok {
		t.Fatal("expected a path")
	}
	out := FormatPlainPaths(s, []pathfind.Path{p})
	if !strings.HasPrefix(out, "1: length=1  Acme") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestJSON(t *testing.T) {
	s := testSnapshot()
	res := pathfind.FindAllPaths(s, "jdoe", "bank-1", pathfind.DefaultOptions())

	data, err := JSON(res)
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"shortestPath", "paths"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON should contain %q", key)
		}
	}
	first := decoded["paths"].([]any)[0].(map[string]any)
	for _, key := range []string{"pathId", "nodes", "edges", "length", "exposureIndex", "exposureBreakdown", "summary"} {
		if _, ok := first[key]; !ok {
			t.Errorf("path item should contain %q", key)
		}
	}
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(testSnapshot().Stats())

	for _, want := range []string{
		"Relationship Graph Statistics",
		"Nodes:          3 total",
		"Company:",
		"Person:",
		"Edges:          3 total",
		"Ownership:",
		"Components:     1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Fund:") {
		t.Error("zero counts should be omitted")
	}
}
