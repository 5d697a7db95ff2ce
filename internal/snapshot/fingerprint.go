// Package snapshot compares graph snapshots: content fingerprints and
// node/edge level diffs between two loads.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"

	"github.com/linkscope/linkscope/internal/graph"
)

// Fingerprint returns the SHA-256 hex digest of a snapshot's content. Load
// order is part of the content, since traversal results follow it.
func Fingerprint(s *graph.Snapshot) string {
	h := sha256.New()
	for _, n := range s.Nodes() {
		writeFields(h, "n", n.ID, n.Label, string(n.Type), n.Ticker, n.Industry, n.Description)
	}
	for _, e := range s.Edges() {
		writeFields(h, "e", e.Source, e.Target, string(e.Type),
			formatOptional(e.Pct), formatOptional(e.Amount), formatOptional(e.RecurringPurchaseUSD))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeFields(h hash.Hash, fields ...string) {
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	h.Write([]byte{'\n'})
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
