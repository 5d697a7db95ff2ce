package graph

// Node represents an entity in the relationship graph
type Node struct {
	ID          string   `json:"id" yaml:"id"`
	Label       string   `json:"label" yaml:"label"`
	Type        NodeType `json:"type" yaml:"type"`
	Ticker      string   `json:"ticker,omitempty" yaml:"ticker,omitempty"`
	Industry    string   `json:"industry,omitempty" yaml:"industry,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// NodeType classifies graph nodes
type NodeType string

const (
	NodeCompany     NodeType = "Company"
	NodePerson      NodeType = "Person"
	NodeInstitution NodeType = "Institution"
	NodeFund        NodeType = "Fund"
)

// NodeTypes lists every known node type in display order.
var NodeTypes = []NodeType{NodeCompany, NodePerson, NodeInstitution, NodeFund}

// Edge represents a directed, typed relationship between two nodes.
// Numeric metadata is optional; nil means the dataset carried no value.
type Edge struct {
	Source               string       `json:"source"`
	Target               string       `json:"target"`
	Type                 RelationType `json:"type"`
	Pct                  *float64     `json:"pct,omitempty"`                  // ownership percentage, 0-100
	Amount               *float64     `json:"amount,omitempty"`               // currency magnitude
	RecurringPurchaseUSD *float64     `json:"recurringPurchaseUSD,omitempty"` // annual recurring purchases
}

// RelationType classifies relationships
type RelationType string

const (
	RelOwnership      RelationType = "Ownership"
	RelPartnership    RelationType = "Partnership"
	RelClient         RelationType = "Client"
	RelSupplier       RelationType = "Supplier"
	RelCreditor       RelationType = "Creditor"
	RelDebtor         RelationType = "Debtor"
	RelJointVenture   RelationType = "JointVenture"
	RelLicensing      RelationType = "Licensing"
	RelSwaps          RelationType = "Swaps"
	RelBoardInterlock RelationType = "BoardInterlock"
	RelCompetitor     RelationType = "Competitor"
)

// RelationTypes lists every known relationship type in display order.
var RelationTypes = []RelationType{
	RelOwnership, RelPartnership, RelClient, RelSupplier, RelCreditor, RelDebtor,
	RelJointVenture, RelLicensing, RelSwaps, RelBoardInterlock, RelCompetitor,
}

// HasNumeric reports whether the edge carries any numeric metadata.
func (e Edge) HasNumeric() bool {
	return e.Pct != nil || e.Amount != nil || e.RecurringPurchaseUSD != nil
}

// Reversed returns a copy of the edge with source and target swapped.
// Type and metadata are preserved.
func (e Edge) Reversed() Edge {
	r := e
	r.Source, r.Target = e.Target, e.Source
	return r
}

// Key returns the identity of the edge as traversed: source, target, type.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Type: e.Type}
}

// EdgeKey is the (source, target, type) triple used to deduplicate paths.
type EdgeKey struct {
	Source string
	Target string
	Type   RelationType
}

// Float returns a pointer to v, for building edges with metadata.
func Float(v float64) *float64 {
	return &v
}

// Stats holds computed metrics about a snapshot
type Stats struct {
	TotalNodes          int                  `json:"total_nodes"`
	TotalEdges          int                  `json:"total_edges"`
	NodesByType         map[NodeType]int     `json:"nodes_by_type"`
	EdgesByType         map[RelationType]int `json:"edges_by_type"`
	MaxOutDegree        int                  `json:"max_out_degree"`
	MaxInDegree         int                  `json:"max_in_degree"`
	HotspotNode         string               `json:"hotspot_node"` // node with most incident edges
	ConnectedComponents int                  `json:"connected_components"`
	IsolatedNodes       int                  `json:"isolated_nodes"`
}
