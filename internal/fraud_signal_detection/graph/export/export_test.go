package export

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/cluster"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/ingest/mapper"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/scoring"
)

type fixture struct {
	g      *domain.Graph
	comps  []cluster.Component
	ranked []scoring.RiskScore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	facilities := []domain.Facility{
		{ID: "A", Name: "Alpha Care", Category: "clinic", Phone: "(555) 123-4567", Address: "1 Main St", City: "Springfield", Zip: "12345-6789", OwnerName: "Owner One"},
		{ID: "B", Name: "Beta Care", Category: "clinic", Phone: "555.123.4567", Address: "1 MAIN ST ", City: "springfield", Zip: "12345", OwnerName: "Owner Two"},
		{ID: "C", Name: "Gamma Home", Category: "home", Phone: "555-999-0000", Address: "9 Elm", City: "Shelbyville", Zip: "54321", OwnerName: "Owner Three"},
	}
	fin := domain.NewFinancialIndex([]domain.FinancialRecord{
		{FacilityNumber: "A", Year: 2023, TotalRevenue: domain.F(1_000_000), NetIncome: domain.F(10), TotalVisits: domain.F(100)},
		{FacilityNumber: "B", Year: 2023, TotalRevenue: domain.F(2_000_000), NetIncome: domain.F(-5), TotalVisits: domain.F(200)},
	})
	g, _ := mapper.ToGraph(facilities, fin)
	comps := cluster.Extract(g)
	ranked := scoring.ScoreClusters(g, comps)
	require.Len(t, ranked, 1)
	require.InDelta(t, 4.8, ranked[0].Score, 1e-9)
	return fixture{g: g, comps: comps, ranked: ranked}
}

func TestSuspiciousClusters(t *testing.T) {
	fx := newFixture(t)

	out := SuspiciousClusters(fx.ranked, 0)
	require.Len(t, out, 1)
	c := out[0]
	assert.Equal(t, 1, c.Rank)
	assert.Equal(t, 2, c.FacilityCount)
	assert.Equal(t, 3_000_000.0, c.TotalRevenue)
	assert.Equal(t, 1, c.SharedPhones)
	assert.Equal(t, 1, c.SharedAddresses)
	assert.True(t, c.HasNegativeIncome)
	require.Len(t, c.Facilities, 2)
	assert.Equal(t, "A", c.Facilities[0].ID)
	assert.Equal(t, "Beta Care", c.Facilities[1].Name)

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"facility_count":2`)
}

func TestSuspiciousClusters_Limit(t *testing.T) {
	ranked := []scoring.RiskScore{{ClusterID: 0, Score: 9}, {ClusterID: 1, Score: 5}, {ClusterID: 2, Score: 4}}
	out := SuspiciousClusters(ranked, 2)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[1].Rank)
	assert.NotNil(t, out[1].Facilities)
}

func TestToDOT_OnlySurfacedClusters(t *testing.T) {
	fx := newFixture(t)

	dot := ToDOT(fx.g, fx.comps, fx.ranked, "clusters")
	assert.True(t, strings.HasPrefix(dot, "graph G {"))
	assert.Contains(t, dot, `label="clusters"`)
	assert.Contains(t, dot, `"fac:A"`)
	assert.Contains(t, dot, `"fac:B"`)
	assert.NotContains(t, dot, `"fac:C"`)
	assert.Contains(t, dot, `"fac:A" -- "phone:5551234567" [label="phone"]`)
	assert.Contains(t, dot, "#f8d7da")
}

func TestEncodeGEXF(t *testing.T) {
	fx := newFixture(t)

	var buf bytes.Buffer
	require.NoError(t, EncodeGEXF(&buf, fx.g))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header))

	var doc gexfDoc
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc.Graph.Nodes, len(fx.g.Nodes))
	assert.Len(t, doc.Graph.Edges, len(fx.g.Edges))

	for _, n := range doc.Graph.Nodes {
		require.Len(t, n.Values, len(gexfNodeAttrs))
		if n.ID == "fac:C" {
			// no financial record: revenue is written as an empty string
			assert.Equal(t, "", n.Values[4].Value)
			assert.Equal(t, "false", n.Values[7].Value)
		}
		if n.ID == "fac:B" {
			assert.Equal(t, "-5", n.Values[5].Value)
		}
	}
}

func TestWriteGEXF(t *testing.T) {
	fx := newFixture(t)
	path := filepath.Join(t.TempDir(), "facility_network.gexf")
	require.NoError(t, WriteGEXF(path, fx.g))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `defaultedgetype="undirected"`)
}

func TestTextReport(t *testing.T) {
	fx := newFixture(t)

	var buf bytes.Buffer
	require.NoError(t, TextReport(&buf, fx.g, fx.comps, fx.ranked, 0))
	out := buf.String()

	assert.Contains(t, out, "Suspicious clusters (score > 3): 1")
	assert.Contains(t, out, "Total revenue in suspicious clusters: $3,000,000")
	assert.Contains(t, out, "CLUSTER #1 - Risk Score: 4.8")
	assert.Contains(t, out, "HAS NEGATIVE NET INCOME")
	assert.Contains(t, out, "- Alpha Care | Rev: $1,000,000")
	assert.Contains(t, out, "(555) 123-4567")
	assert.Contains(t, out, "1 main st, springfield, 12345")
	assert.True(t, strings.HasSuffix(out, "END OF REPORT\n"))
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "(555) 123-4567", formatPhone("5551234567"))
	assert.Equal(t, "(155) 512-3456", formatPhone("15551234567"))
	assert.Equal(t, "123", formatPhone("123"))
}

type fakeNeo4j struct {
	queries []string
	params  []map[string]any
	err     error
}

func (f *fakeNeo4j) Run(_ context.Context, cypher string, params map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.queries = append(f.queries, cypher)
	f.params = append(f.params, params)
	return nil
}

func TestPushToNeo4j(t *testing.T) {
	fx := newFixture(t)
	db := &fakeNeo4j{}

	require.NoError(t, PushToNeo4j(context.Background(), db, fx.g, fx.comps, fx.ranked))
	require.Len(t, db.queries, 3)
	assert.Equal(t, mergeFacilities, db.queries[0])
	assert.Equal(t, mergeLinks, db.queries[2])

	facilities := db.params[0]["rows"].([]map[string]any)
	require.Len(t, facilities, 2)
	assert.Equal(t, "fac:A", facilities[0]["id"])
	assert.Equal(t, 4.8, facilities[0]["risk_score"])

	// phone, address and two owners
	attrs := db.params[1]["rows"].([]map[string]any)
	assert.Len(t, attrs, 4)
	links := db.params[2]["rows"].([]map[string]any)
	assert.Len(t, links, 6)
}

func TestPushToNeo4j_Error(t *testing.T) {
	fx := newFixture(t)
	err := PushToNeo4j(context.Background(), &fakeNeo4j{err: errors.New("down")}, fx.g, fx.comps, fx.ranked)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neo4j merge facilities")
}

func TestPushToNeo4j_NothingSurfaced(t *testing.T) {
	fx := newFixture(t)
	db := &fakeNeo4j{}
	require.NoError(t, PushToNeo4j(context.Background(), db, fx.g, fx.comps, nil))
	assert.Empty(t, db.queries)
}

func TestWriteJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	v := map[string]string{"a": "Smith & Sons <LLC>"}
	require.NoError(t, WriteJSON(filepath.Join(dir, "a.json"), v))
	require.NoError(t, WriteYAML(filepath.Join(dir, "a.yaml"), map[string]int{"a": 1}))

	b, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": \"Smith & Sons <LLC>\"\n}\n", string(b))

	b, err = os.ReadFile(filepath.Join(dir, "a.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files are left behind")
}

func TestWriteJSON_EncodeFailureKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteFile(path, "previous"))

	err := WriteJSON(path, map[string]float64{"z": math.Inf(1)})
	require.Error(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(b))
}
