package export

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/cluster"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/scoring"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
)

type Neo4jClient interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

const (
	mergeFacilities = `UNWIND $rows AS row
MERGE (f:Facility {id: row.id})
SET f.name = row.name, f.category = row.category, f.in_service = row.in_service,
    f.revenue = row.revenue, f.net_income = row.net_income, f.visits = row.visits,
    f.cluster_id = row.cluster_id, f.risk_score = row.risk_score`

	mergeAttributes = `UNWIND $rows AS row
MERGE (a:Attribute {id: row.id})
SET a.type = row.type, a.value = row.value`

	mergeLinks = `UNWIND $rows AS row
MATCH (f:Facility {id: row.from}), (a:Attribute {id: row.to})
MERGE (f)-[r:SHARES {type: row.type}]->(a)`
)

// PushToNeo4j merges the nodes and edges of the surfaced clusters into a
// graph database. Re-running a push is idempotent.
func PushToNeo4j(ctx context.Context, db Neo4jClient, g *domain.Graph, comps []cluster.Component, ranked []scoring.RiskScore) error {
	var facilities, attrs, links []map[string]any
	in := map[string]bool{}

	for _, s := range ranked {
		for _, id := range members(comps, s.ClusterID) {
			n := g.Nodes[id]
			if n == nil || in[id] {
				continue
			}
			in[id] = true
			switch d := n.Data.(type) {
			case domain.FacilityNode:
				facilities = append(facilities, map[string]any{
					"id":         id,
					"name":       d.Name,
					"category":   d.Category,
					"in_service": d.InService,
					"revenue":    nullable(d.Revenue),
					"net_income": nullable(d.NetIncome),
					"visits":     nullable(d.Visits),
					"cluster_id": s.ClusterID,
					"risk_score": s.Score,
				})
			case domain.AttributeNode:
				attrs = append(attrs, map[string]any{
					"id":    id,
					"type":  string(d.Type),
					"value": d.Value,
				})
			}
		}
	}
	for _, e := range g.Edges {
		if in[e.From] && in[e.To] {
			links = append(links, map[string]any{"from": e.From, "to": e.To, "type": string(e.Type)})
		}
	}

	batches := []struct {
		name   string
		cypher string
		rows   []map[string]any
	}{
		{"facilities", mergeFacilities, facilities},
		{"attributes", mergeAttributes, attrs},
		{"links", mergeLinks, links},
	}
	for _, batch := range batches {
		if len(batch.rows) == 0 {
			continue
		}
		if err := db.Run(ctx, batch.cypher, map[string]any{"rows": batch.rows}); err != nil {
			return fmt.Errorf("neo4j merge %s: %w", batch.name, err)
		}
	}

	logger.Info("graph pushed to neo4j",
		zap.Int("facilities", len(facilities)),
		zap.Int("attributes", len(attrs)),
		zap.Int("links", len(links)),
	)
	return nil
}

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// Neo4jDriver runs queries through the official Bolt driver. It works
// against Neo4j and Memgraph.
type Neo4jDriver struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jDriver(ctx context.Context, uri, username, password, database string) (*Neo4jDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jDriver{driver: driver, database: database}, nil
}

func (d *Neo4jDriver) Run(ctx context.Context, cypher string, params map[string]any) error {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}
	_, err := neo4j.ExecuteQuery(ctx, d.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	return err
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func (d *Neo4jDriver) Ping(ctx context.Context) error {
	return d.driver.VerifyConnectivity(ctx)
}
