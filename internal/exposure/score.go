// Package exposure scores how strongly one entity is exposed to another
// along a chain of relationships.
package exposure

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/linkscope/linkscope/internal/graph"
)

const (
	// LengthPenaltyPerHop is subtracted for every edge in the path.
	LengthPenaltyPerHop = 0.75
	// ConfidencePenaltyPerHop is subtracted per edge when no edge in the
	// path carries numeric metadata.
	ConfidencePenaltyPerHop = 0.5
	// HighExposureThreshold is the summed amount above which the summary
	// reports "High exposure".
	HighExposureThreshold = 1_000_000
)

// Breakdown holds the sub-scores that make up an exposure index.
type Breakdown struct {
	RelationshipWeightScore float64 `json:"relationshipWeightScore"`
	AmountScore             float64 `json:"amountScore"`
	OwnershipScore          float64 `json:"ownershipScore"`
	LengthPenalty           float64 `json:"lengthPenalty"`
	ConfidencePenalty       float64 `json:"confidencePenalty"`
}

// Index combines the sub-scores into the exposure index.
func (b Breakdown) Index() float64 {
	return b.RelationshipWeightScore + b.AmountScore + b.OwnershipScore - b.LengthPenalty - b.ConfidencePenalty
}

// Result is the outcome of scoring one path.
type Result struct {
	Index     float64   `json:"exposureIndex"`
	Breakdown Breakdown `json:"exposureBreakdown"`
	Summary   string    `json:"summary"`
}

// Weight returns the structural weight of a relationship type.
// Unknown types weigh 1.
func Weight(t graph.RelationType) float64 {
	switch t {
	case graph.RelOwnership:
		return 5
	case graph.RelCreditor, graph.RelDebtor, graph.RelSwaps:
		return 4
	case graph.RelClient, graph.RelSupplier:
		return 3
	case graph.RelPartnership, graph.RelJointVenture, graph.RelLicensing:
		return 2
	default:
		return 1
	}
}

// Score computes the exposure index, its breakdown and a one-line summary
// for an edge sequence of the given length. It has no side effects.
func Score(edges []graph.Edge, length int) Result {
	var b Breakdown
	grounded := false

	for _, e := range edges {
		b.RelationshipWeightScore += Weight(e.Type)
		if e.HasNumeric() {
			grounded = true
		}
		if v, ok := usable(e.Pct); ok {
			b.OwnershipScore += v / 10
		}
		if v, ok := usable(e.Amount); ok {
			b.AmountScore += magnitude(v)
		}
		if v, ok := usable(e.RecurringPurchaseUSD); ok {
			b.AmountScore += magnitude(v)
		}
	}

	b.LengthPenalty = float64(length) * LengthPenaltyPerHop
	if !grounded {
		b.ConfidencePenalty = float64(length) * ConfidencePenaltyPerHop
	}

	return Result{
		Index:     b.Index(),
		Breakdown: b,
		Summary:   Summarize(edges),
	}
}

// Summarize builds the human-readable summary of a path.
func Summarize(edges []graph.Edge) string {
	var parts []string

	hasOwnership := false
	for _, e := range edges {
		if e.Type != graph.RelOwnership {
			continue
		}
		if v, ok := usable(e.Pct); ok {
			parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64)+"% ownership")
			hasOwnership = true
			break
		}
	}

	total := 0.0
	for _, e := range edges {
		if v, ok := usable(e.Amount); ok {
			total += v
		}
	}

	switch {
	case total > HighExposureThreshold:
		parts = append(parts, "High exposure: "+formatMoney(total))
	case total > 0:
		parts = append(parts, fmt.Sprintf("Total amount: $%.0fK", total/1e3))
	}

	if !hasOwnership && total <= 0 {
		if t, ok := uniformType(edges); ok {
			return string(t)
		}
		return fmt.Sprintf("%d relationships", len(edges))
	}
	return strings.Join(parts, ", ")
}

// magnitude dampens raw currency values so that large amounts have
// diminishing returns.
func magnitude(v float64) float64 {
	return math.Log10(v+1) * 3
}

// usable unwraps optional metadata, rejecting values that cannot be scored.
func usable(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0, false
	}
	return *v, true
}

func formatMoney(v float64) string {
	if v >= 1e9 {
		return fmt.Sprintf("$%.1fB", v/1e9)
	}
	return fmt.Sprintf("$%.1fM", v/1e6)
}

func uniformType(edges []graph.Edge) (graph.RelationType, bool) {
	if len(edges) == 0 {
		return "", false
	}
	t := edges[0].Type
	for _, e := range edges[1:] {
		if e.Type != t {
			return "", false
		}
	}
	return t, true
}
