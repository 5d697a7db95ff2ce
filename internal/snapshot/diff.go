package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linkscope/linkscope/internal/graph"
)

// DiffType indicates the kind of change.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffRemoved  DiffType = "removed"
	DiffModified DiffType = "modified"
)

// Diff is the complete difference between two snapshots.
type Diff struct {
	OldFingerprint string     `json:"old_fingerprint"`
	NewFingerprint string     `json:"new_fingerprint"`
	NodeDiffs      []NodeDiff `json:"node_diffs"`
	EdgeDiffs      []EdgeDiff `json:"edge_diffs"`
	Summary        Summary    `json:"summary"`
}

// NodeDiff is a change to one entity.
type NodeDiff struct {
	ID     string      `json:"id"`
	Type   DiffType    `json:"type"`
	Old    *graph.Node `json:"old,omitempty"`
	New    *graph.Node `json:"new,omitempty"`
	Fields []string    `json:"fields,omitempty"` // changed fields, for DiffModified
}

// EdgeDiff is a change to one relationship. Parallel edges sharing a key
// are paired in load order.
type EdgeDiff struct {
	Key    graph.EdgeKey `json:"key"`
	Type   DiffType      `json:"type"`
	Old    *graph.Edge   `json:"old,omitempty"`
	New    *graph.Edge   `json:"new,omitempty"`
	Fields []string      `json:"fields,omitempty"`
}

// Summary provides aggregate counts about the diff.
type Summary struct {
	NodesAdded    int `json:"nodes_added"`
	NodesRemoved  int `json:"nodes_removed"`
	NodesModified int `json:"nodes_modified"`
	EdgesAdded    int `json:"edges_added"`
	EdgesRemoved  int `json:"edges_removed"`
	EdgesModified int `json:"edges_modified"`
	// Reordered is set when the content matches but the load order does not.
	Reordered bool `json:"reordered,omitempty"`
}

// Changed reports whether any node, edge or load order differs.
func (s Summary) Changed() bool {
	return s != Summary{}
}

// Compare computes the differences from old to new. A nil old snapshot
// is treated as empty.
func Compare(old, new *graph.Snapshot) *Diff {
	if old == nil {
		old = graph.MustBuild(nil, nil)
	}
	d := &Diff{
		OldFingerprint: Fingerprint(old),
		NewFingerprint: Fingerprint(new),
		NodeDiffs:      []NodeDiff{},
		EdgeDiffs:      []EdgeDiff{},
	}
	if d.OldFingerprint == d.NewFingerprint {
		return d
	}

	d.NodeDiffs = diffNodes(old.Nodes(), new.Nodes())
	d.EdgeDiffs = diffEdges(old.Edges(), new.Edges())
	d.Summary = computeSummary(d)
	d.Summary.Reordered = d.Summary == Summary{}
	return d
}

func diffNodes(oldNodes, newNodes []graph.Node) []NodeDiff {
	oldMap := make(map[string]graph.Node, len(oldNodes))
	for _, n := range oldNodes {
		oldMap[n.ID] = n
	}
	newMap := make(map[string]graph.Node, len(newNodes))
	for _, n := range newNodes {
		newMap[n.ID] = n
	}

	diffs := []NodeDiff{}
	for id, o := range oldMap {
		n, ok := newMap[id]
		if !ok {
			diffs = append(diffs, NodeDiff{ID: id, Type: DiffRemoved, Old: &o})
			continue
		}
		if fields := nodeFields(o, n); len(fields) > 0 {
			diffs = append(diffs, NodeDiff{ID: id, Type: DiffModified, Old: &o, New: &n, Fields: fields})
		}
	}
	for id, n := range newMap {
		if _, ok := oldMap[id]; !ok {
			diffs = append(diffs, NodeDiff{ID: id, Type: DiffAdded, New: &n})
		}
	}

	sort.Slice(diffs, func(i, j int) bool {
		return diffs[i].ID < diffs[j].ID
	})
	return diffs
}

func nodeFields(o, n graph.Node) []string {
	var fields []string
	for _, f := range []struct {
		name     string
		old, new string
	}{
		{"label", o.Label, n.Label},
		{"type", string(o.Type), string(n.Type)},
		{"ticker", o.Ticker, n.Ticker},
		{"industry", o.Industry, n.Industry},
		{"description", o.Description, n.Description},
	} {
		if f.old != f.new {
			fields = append(fields, f.name)
		}
	}
	return fields
}

func diffEdges(oldEdges, newEdges []graph.Edge) []EdgeDiff {
	group := func(edges []graph.Edge) map[graph.EdgeKey][]graph.Edge {
		m := make(map[graph.EdgeKey][]graph.Edge)
		for _, e := range edges {
			m[e.Key()] = append(m[e.Key()], e)
		}
		return m
	}
	oldMap, newMap := group(oldEdges), group(newEdges)

	keys := make(map[graph.EdgeKey]bool, len(oldMap)+len(newMap))
	for k := range oldMap {
		keys[k] = true
	}
	for k := range newMap {
		keys[k] = true
	}

	diffs := []EdgeDiff{}
	for k := range keys {
		olds, news := oldMap[k], newMap[k]
		for i := 0; i < len(olds) || i < len(news); i++ {
			switch {
			case i >= len(news):
				diffs = append(diffs, EdgeDiff{Key: k, Type: DiffRemoved, Old: &olds[i]})
			case i >= len(olds):
				diffs = append(diffs, EdgeDiff{Key: k, Type: DiffAdded, New: &news[i]})
			default:
				if fields := edgeFields(olds[i], news[i]); len(fields) > 0 {
					diffs = append(diffs, EdgeDiff{Key: k, Type: DiffModified, Old: &olds[i], New: &news[i], Fields: fields})
				}
			}
		}
	}

	sort.SliceStable(diffs, func(i, j int) bool {
		a, b := diffs[i].Key, diffs[j].Key
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Type < b.Type
	})
	return diffs
}

func edgeFields(o, n graph.Edge) []string {
	var fields []string
	for _, f := range []struct {
		name     string
		old, new *float64
	}{
		{"pct", o.Pct, n.Pct},
		{"amount", o.Amount, n.Amount},
		{"recurringPurchaseUSD", o.RecurringPurchaseUSD, n.RecurringPurchaseUSD},
	} {
		if formatOptional(f.old) != formatOptional(f.new) {
			fields = append(fields, f.name)
		}
	}
	return fields
}

func computeSummary(d *Diff) Summary {
	var s Summary
	for _, nd := range d.NodeDiffs {
		switch nd.Type {
		case DiffAdded:
			s.NodesAdded++
		case DiffRemoved:
			s.NodesRemoved++
		case DiffModified:
			s.NodesModified++
		}
	}
	for _, ed := range d.EdgeDiffs {
		switch ed.Type {
		case DiffAdded:
			s.EdgesAdded++
		case DiffRemoved:
			s.EdgesRemoved++
		case DiffModified:
			s.EdgesModified++
		}
	}
	return s
}

// FormatDiff returns a human-readable string representation of the diff.
func FormatDiff(d *Diff) string {
	var sb strings.Builder

	switch {
	case !d.Summary.Changed():
		return "Snapshots are identical.\n"
	case d.Summary.Reordered:
		return "Same nodes and edges in a different load order.\n"
	}

	sb.WriteString(fmt.Sprintf("Nodes: +%d -%d ~%d\n",
		d.Summary.NodesAdded, d.Summary.NodesRemoved, d.Summary.NodesModified))
	sb.WriteString(fmt.Sprintf("Edges: +%d -%d ~%d\n",
		d.Summary.EdgesAdded, d.Summary.EdgesRemoved, d.Summary.EdgesModified))

	if len(d.NodeDiffs) > 0 {
		sb.WriteString("\n")
	}
	for _, nd := range d.NodeDiffs {
		sb.WriteString(fmt.Sprintf("  %s node %s", icon(nd.Type), nd.ID))
		if len(nd.Fields) > 0 {
			sb.WriteString(" (" + strings.Join(nd.Fields, ", ") + ")")
		}
		sb.WriteString("\n")
	}

	if len(d.EdgeDiffs) > 0 {
		sb.WriteString("\n")
	}
	for _, ed := range d.EdgeDiffs {
		sb.WriteString(fmt.Sprintf("  %s edge %s -[%s]-> %s", icon(ed.Type), ed.Key.Source, ed.Key.Type, ed.Key.Target))
		if len(ed.Fields) > 0 {
			sb.WriteString(" (" + strings.Join(ed.Fields, ", ") + ")")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func icon(t DiffType) string {
	switch t {
	case DiffAdded:
		return "+"
	case DiffRemoved:
		return "-"
	default:
		return "~"
	}
}
