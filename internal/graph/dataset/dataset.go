// Package dataset loads relationship graphs from JSON or YAML files shaped
// {nodes: [...], edges: [...]} and writes snapshots back in the same shape.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/linkscope/linkscope/internal/graph"
)

var (
	nodeTypes     = make(map[string]graph.NodeType)
	relationTypes = make(map[string]graph.RelationType)
)

func init() {
	for _, t := range graph.NodeTypes {
		nodeTypes[typeKey(string(t))] = t
	}
	for _, t := range graph.RelationTypes {
		relationTypes[typeKey(string(t))] = t
	}
}

// typeKey folds case and drops separators, so "Joint Venture",
// "joint_venture" and "JointVenture" compare equal.
func typeKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// NormalizeNodeType maps a dataset type name to a known node type. Unknown
// or missing names fall back to Company.
func NormalizeNodeType(s string) (graph.NodeType, bool) {
	if t, ok := nodeTypes[typeKey(s)]; ok {
		return t, true
	}
	return graph.NodeCompany, false
}

// NormalizeRelationType maps a dataset type name to a known relation type.
// Unknown names are kept verbatim, trimmed.
func NormalizeRelationType(s string) (graph.RelationType, bool) {
	if t, ok := relationTypes[typeKey(s)]; ok {
		return t, true
	}
	return graph.RelationType(strings.TrimSpace(s)), false
}

func (d document) snapshot(logger *slog.Logger) (*graph.Snapshot, error) {
	nodes := make([]graph.Node, 0, len(d.Nodes))
	for _, r := range d.Nodes {
		id := strings.TrimSpace(r.ID)
		t, known := NormalizeNodeType(r.Type)
		if !known && r.Type != "" {
			logger.Warn("unknown node type, using Company", "node", id, "type", r.Type)
		}
		label := r.Label
		if label == "" {
			label = id
		}
		nodes = append(nodes, graph.Node{
			ID:          id,
			Label:       label,
			Type:        t,
			Ticker:      r.Ticker,
			Industry:    r.Industry,
			Description: r.Description,
		})
	}

	edges := make([]graph.Edge, 0, len(d.Edges))
	for _, r := range d.Edges {
		t, known := NormalizeRelationType(r.Type)
		if !known {
			logger.Warn("unknown relation type", "source", r.Source, "target", r.Target, "type", r.Type)
		}
		edges = append(edges, graph.Edge{
			Source:               strings.TrimSpace(r.Source),
			Target:               strings.TrimSpace(r.Target),
			Type:                 t,
			Pct:                  r.Pct.v,
			Amount:               r.Amount.v,
			RecurringPurchaseUSD: r.Recurring.v,
		})
	}

	return graph.Build(nodes, edges)
}

// Decode parses a dataset in the given format and builds a snapshot.
func Decode(data []byte, format Format, logger *slog.Logger) (*graph.Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	return doc.snapshot(logger)
}

// Encode writes a snapshot in the given format.
func Encode(s *graph.Snapshot, format Format) ([]byte, error) {
	return encode(toDocument(s), format)
}

// Repository reads and writes a single dataset file.
type Repository struct {
	path   string
	format Format
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for normalization warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// New returns a repository for path. The format follows the extension.
func New(path string, opts ...Option) (*Repository, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	r := &Repository{path: path, format: format, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Path returns the dataset file path.
func (r *Repository) Path() string { return r.path }

func (r *Repository) String() string { return "file:" + r.path }

// LoadSnapshot reads the file and builds a fresh snapshot.
func (r *Repository) LoadSnapshot(ctx context.Context) (*graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	s, err := Decode(data, r.format, r.logger)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", r.path, err)
	}
	return s, nil
}

// StoreSnapshot replaces the file with the snapshot's nodes and edges.
// The new content is written to a sibling temp file and renamed over the
// original.
func (r *Repository) StoreSnapshot(ctx context.Context, s *graph.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(s, r.format)
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// Close is a no-op; the file is opened per load.
func (r *Repository) Close(context.Context) error { return nil }

var (
	_ graph.Repository = (*Repository)(nil)
	_ graph.Writer     = (*Repository)(nil)
)
