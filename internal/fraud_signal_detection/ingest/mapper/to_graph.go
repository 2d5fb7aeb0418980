package mapper

import (
	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/normalize"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
)

func facilityNode(f domain.Facility, fin *domain.FinancialRecord) *domain.Node {
	data := domain.FacilityNode{
		FacilityID: f.ID,
		Name:       f.Name,
		Category:   f.Category,
		InService:  f.InService,
	}
	if fin != nil {
		data.HasFinancial = true
		data.Revenue = fin.TotalRevenue
		data.NetIncome = fin.NetIncome
		data.Visits = fin.TotalVisits
	}
	return &domain.Node{ID: domain.FacilityNodeID(f.ID), Data: data}
}

func ensureAttribute(g *domain.Graph, t domain.AttributeType, value string) string {
	id := domain.AttributeNodeID(t, value)
	g.AddNode(&domain.Node{
		ID:   id,
		Data: domain.AttributeNode{Type: t, Value: value},
	})
	return id
}

// ToGraph builds the facility/attribute linkage graph in a single pass.
// Node ids are content-addressed, so a value seen by a second facility
// reuses the first facility's node. Facilities without an id, including
// whitespace-only ids, are skipped.
// The shared-attribute index is returned next to the graph for reporting.
func ToGraph(facilities []domain.Facility, fin *domain.FinancialIndex) (*domain.Graph, *SharedIndex) {
	g := domain.NewGraph()
	idx := NewSharedIndex()

	for i, f := range facilities {
		if !f.HasID() {
			logger.Warn("skipping facility without id", zap.Int("record", i), zap.String("name", f.Name))
			continue
		}

		rec, _ := fin.Lookup(f)
		fac := facilityNode(f, rec)
		if !g.AddNode(fac) {
			logger.Warn("duplicate facility id, keeping first record", zap.String("facility_id", f.ID))
			continue
		}

		for _, t := range domain.AttributeTypes {
			value, ok := normalize.Attribute(t, f)
			if !ok {
				continue
			}
			attr := ensureAttribute(g, t, value)
			g.AddEdge(&domain.Edge{From: fac.ID, To: attr, Type: t})
			idx.add(t, value, f.ID)
		}
	}

	return g, idx
}
