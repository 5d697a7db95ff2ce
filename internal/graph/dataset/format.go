package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linkscope/linkscope/internal/graph"
)

var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Format is the on-disk encoding of a dataset.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

type document struct {
	Nodes []nodeRecord `json:"nodes" yaml:"nodes"`
	Edges []edgeRecord `json:"edges" yaml:"edges"`
}

type nodeRecord struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Ticker      string `json:"ticker,omitempty" yaml:"ticker,omitempty"`
	Industry    string `json:"industry,omitempty" yaml:"industry,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type edgeRecord struct {
	Source    string `json:"source" yaml:"source"`
	Target    string `json:"target" yaml:"target"`
	Type      string `json:"type" yaml:"type"`
	Pct       number `json:"pct,omitzero" yaml:"pct,omitempty"`
	Amount    number `json:"amount,omitzero" yaml:"amount,omitempty"`
	Recurring number `json:"recurringPurchaseUSD,omitzero" yaml:"recurringPurchaseUSD,omitempty"`
}

// number is an optional float that also accepts numeric strings such as
// "2500000" or " 12.5 ". Absent, null and empty values decode to nil.
type number struct {
	v *float64
}

func (n number) IsZero() bool { return n.v == nil }

func parseNumber(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	return &f, nil
}

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.v = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := parseNumber(s)
		if err != nil {
			return err
		}
		n.v = v
		return nil
	}
	v, err := parseNumber(string(data))
	if err != nil {
		return err
	}
	n.v = v
	return nil
}

func (n number) MarshalJSON() ([]byte, error) {
	if n.v == nil || math.IsNaN(*n.v) || math.IsInf(*n.v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(*n.v)
}

func (n *number) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	if value.Tag == "!!null" {
		n.v = nil
		return nil
	}
	v, err := parseNumber(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	n.v = v
	return nil
}

func (n number) MarshalYAML() (any, error) {
	if n.v == nil {
		return nil, nil
	}
	return *n.v, nil
}

func decode(data []byte, format Format) (document, error) {
	var doc document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return doc, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return doc, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return doc, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	return doc, nil
}

func encode(doc document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
}

func toDocument(s *graph.Snapshot) document {
	var doc document
	for _, n := range s.Nodes() {
		doc.Nodes = append(doc.Nodes, nodeRecord{
			ID:          n.ID,
			Label:       n.Label,
			Type:        string(n.Type),
			Ticker:      n.Ticker,
			Industry:    n.Industry,
			Description: n.Description,
		})
	}
	for _, e := range s.Edges() {
		doc.Edges = append(doc.Edges, edgeRecord{
			Source:    e.Source,
			Target:    e.Target,
			Type:      string(e.Type),
			Pct:       number{e.Pct},
			Amount:    number{e.Amount},
			Recurring: number{e.RecurringPurchaseUSD},
		})
	}
	return doc
}
