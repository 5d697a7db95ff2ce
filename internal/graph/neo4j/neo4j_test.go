package neo4j

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkscope/linkscope/internal/graph"
)

func sample() *graph.Snapshot {
	return graph.MustBuild([]graph.Node{
		{ID: "acme", Label: "Acme", Type: graph.NodeCompany, Ticker: "ACME"},
		{ID: "jdoe", Label: "Jane Doe", Type: graph.NodePerson},
	}, []graph.Edge{
		{Source: "jdoe", Target: "acme", Type: graph.RelOwnership, Pct: graph.Float(60)},
		{Source: "acme", Target: "jdoe", Type: graph.RelClient},
	})
}

func TestRows(t *testing.T) {
	s := sample()

	nodes := nodeRows(s.Nodes())
	require.Len(t, nodes, 2)
	assert.Equal(t, int64(0), nodes[0]["seq"])
	assert.Equal(t, "ACME", nodes[0]["ticker"])
	_, hasTicker := nodes[1]["ticker"]
	assert.False(t, hasTicker, "empty strings are not stored")

	edges := edgeRows(s.Edges())
	require.Len(t, edges, 2)
	assert.Equal(t, "jdoe", edges[0]["source"])
	props := edges[0]["props"].(map[string]any)
	assert.Equal(t, "Ownership", props["type"])
	assert.Equal(t, 60.0, props["pct"])
	_, hasAmount := props["amount"]
	assert.False(t, hasAmount, "nil metadata is not stored")
	assert.Equal(t, int64(1), edges[1]["props"].(map[string]any)["seq"])
}

func TestFromProps(t *testing.T) {
	n, err := nodeFromProps(map[string]any{"id": "acme", "label": "Acme", "type": "Company", "seq": int64(0)})
	require.NoError(t, err)
	assert.Equal(t, graph.Node{ID: "acme", Label: "Acme", Type: graph.NodeCompany}, n)

	_, err = nodeFromProps(map[string]any{"label": "no id"})
	assert.ErrorIs(t, err, graph.ErrEmptyID)

	e := edgeFromProps("a", "b", map[string]any{"type": "Debtor", "amount": int64(2500000), "pct": 12.5})
	assert.Equal(t, graph.RelDebtor, e.Type)
	require.NotNil(t, e.Amount)
	assert.Equal(t, 2_500_000.0, *e.Amount)
	require.NotNil(t, e.Pct)
	assert.Equal(t, 12.5, *e.Pct)
	assert.Nil(t, e.RecurringPurchaseUSD)

	// a relationship without properties still yields an edge
	e = edgeFromProps("a", "b", nil)
	assert.Equal(t, graph.RelationType(""), e.Type)
	assert.False(t, e.HasNumeric())
}

// TestRoundTrip runs against a live server when LINKSCOPE_TEST_NEO4J_URI is set.
func TestRoundTrip(t *testing.T) {
	uri := os.Getenv("LINKSCOPE_TEST_NEO4J_URI")
	if uri == "" {
		t.Skip("LINKSCOPE_TEST_NEO4J_URI not set")
	}
	ctx := context.Background()
	repo, err := NewNeo4j(ctx, uri, os.Getenv("LINKSCOPE_TEST_NEO4J_USER"), os.Getenv("LINKSCOPE_TEST_NEO4J_PASSWORD"), "")
	require.NoError(t, err)
	defer repo.Close(ctx)

	want := sample()
	require.NoError(t, repo.StoreSnapshot(ctx, want))

	nodes, edges, err := repo.CountEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), nodes)
	assert.Equal(t, int64(2), edges)

	got, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Nodes(), got.Nodes())
	assert.Equal(t, want.Edges(), got.Edges())
}
