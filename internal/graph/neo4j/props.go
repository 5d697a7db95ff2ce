package neo4j

import (
	"fmt"

	"github.com/linkscope/linkscope/internal/graph"
)

func nodeRows(nodes []graph.Node) []map[string]any {
	rows := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		row := map[string]any{
			"seq":   int64(i),
			"id":    n.ID,
			"label": n.Label,
			"type":  string(n.Type),
		}
		optionalString(row, "ticker", n.Ticker)
		optionalString(row, "industry", n.Industry)
		optionalString(row, "description", n.Description)
		rows[i] = row
	}
	return rows
}

func edgeRows(edges []graph.Edge) []map[string]any {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		props := map[string]any{
			"seq":  int64(i),
			"type": string(e.Type),
		}
		optionalFloat(props, "pct", e.Pct)
		optionalFloat(props, "amount", e.Amount)
		optionalFloat(props, "recurringPurchaseUSD", e.RecurringPurchaseUSD)
		rows[i] = map[string]any{
			"source": e.Source,
			"target": e.Target,
			"props":  props,
		}
	}
	return rows
}

// Neo4j drops null properties, so absent values are simply not set.
func optionalString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func optionalFloat(m map[string]any, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}

func nodeFromProps(props map[string]any) (graph.Node, error) {
	id := asString(props["id"])
	if id == "" {
		return graph.Node{}, fmt.Errorf("entity without id: %w", graph.ErrEmptyID)
	}
	return graph.Node{
		ID:          id,
		Label:       asString(props["label"]),
		Type:        graph.NodeType(asString(props["type"])),
		Ticker:      asString(props["ticker"]),
		Industry:    asString(props["industry"]),
		Description: asString(props["description"]),
	}, nil
}

func edgeFromProps(source, target string, props map[string]any) graph.Edge {
	return graph.Edge{
		Source:               source,
		Target:               target,
		Type:                 graph.RelationType(asString(props["type"])),
		Pct:                  asFloat(props["pct"]),
		Amount:               asFloat(props["amount"]),
		RecurringPurchaseUSD: asFloat(props["recurringPurchaseUSD"]),
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asFloat accepts both numeric kinds the driver returns.
func asFloat(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case int64:
		f := float64(x)
		return &f
	}
	return nil
}
