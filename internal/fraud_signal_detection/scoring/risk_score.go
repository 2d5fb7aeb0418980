package scoring

import (
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/cluster"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

const (
	// ScoreThreshold is the hard surfacing gate: only scores strictly above
	// it are emitted by ScoreClusters.
	ScoreThreshold = 3.0
	// MinFacilities is the smallest cluster that is scored at all.
	MinFacilities = 2

	highRevenue     = 50_000_000.0
	elevatedRevenue = 10_000_000.0
)

// RiskScore is the structural risk of one cluster.
type RiskScore struct {
	ClusterID         int                   `json:"cluster_id" yaml:"cluster_id"`
	Score             float64               `json:"score" yaml:"score"`
	FacilityCount     int                   `json:"facility_count" yaml:"facility_count"`
	SharedOwners      int                   `json:"shared_owners" yaml:"shared_owners"`
	SharedAdmins      int                   `json:"shared_admins" yaml:"shared_admins"`
	SharedPhones      int                   `json:"shared_phones" yaml:"shared_phones"`
	SharedAddresses   int                   `json:"shared_addresses" yaml:"shared_addresses"`
	SharedTypes       int                   `json:"shared_types" yaml:"shared_types"`
	TotalRevenue      float64               `json:"total_revenue" yaml:"total_revenue"`
	AvgRevenue        float64               `json:"avg_revenue" yaml:"avg_revenue"`
	TotalVisits       float64               `json:"total_visits" yaml:"total_visits"`
	HasNegativeIncome bool                  `json:"has_negative_income" yaml:"has_negative_income"`
	Facilities        []domain.FacilityNode `json:"facilities" yaml:"facilities"`
}

// Composition is a cluster partitioned by node type.
type Composition struct {
	Facilities []domain.FacilityNode
	Owners     []string
	Admins     []string
	Phones     []string
	Addresses  []string
}

// Compose partitions the members of c by node type.
func Compose(g *domain.Graph, c cluster.Component) Composition {
	var comp Composition
	for _, id := range c.Nodes {
		n, ok := g.Nodes[id]
		if !ok {
			continue
		}
		switch d := n.Data.(type) {
		case domain.FacilityNode:
			comp.Facilities = append(comp.Facilities, d)
		case domain.AttributeNode:
			switch d.Type {
			case domain.AttrOwner:
				comp.Owners = append(comp.Owners, d.Value)
			case domain.AttrAdmin:
				comp.Admins = append(comp.Admins, d.Value)
			case domain.AttrPhone:
				comp.Phones = append(comp.Phones, d.Value)
			case domain.AttrAddress:
				comp.Addresses = append(comp.Addresses, d.Value)
			}
		}
	}
	return comp
}

// ScoreComposition applies the scoring formula without the surfacing gate:
//
//	facility_count * (1 + shared_types*0.5) * high_revenue_factor * negative_income_factor
func ScoreComposition(clusterID int, comp Composition) RiskScore {
	rs := RiskScore{
		ClusterID:       clusterID,
		FacilityCount:   len(comp.Facilities),
		SharedOwners:    len(comp.Owners),
		SharedAdmins:    len(comp.Admins),
		SharedPhones:    len(comp.Phones),
		SharedAddresses: len(comp.Addresses),
		Facilities:      comp.Facilities,
	}

	reported := 0
	for _, f := range comp.Facilities {
		if f.Revenue != nil {
			rs.TotalRevenue += *f.Revenue
			reported++
		}
		rs.TotalVisits += domain.Val(f.Visits)
		if f.NetIncome != nil && *f.NetIncome < 0 {
			rs.HasNegativeIncome = true
		}
	}
	if reported > 0 {
		rs.AvgRevenue = rs.TotalRevenue / float64(reported)
	}

	rs.SharedTypes = sharedTypes(comp)
	rs.Score = float64(rs.FacilityCount) *
		(1 + float64(rs.SharedTypes)*0.5) *
		highRevenueFactor(rs.TotalRevenue) *
		negativeIncomeFactor(rs.HasNegativeIncome)
	return rs
}

// sharedTypes counts the attribute types among phones, addresses and admins
// with fewer distinct values than facilities. Owners are not counted.
func sharedTypes(comp Composition) int {
	n := len(comp.Facilities)
	count := 0
	for _, values := range [][]string{comp.Phones, comp.Addresses, comp.Admins} {
		if len(values) > 0 && len(values) < n {
			count++
		}
	}
	return count
}

func highRevenueFactor(total float64) float64 {
	switch {
	case total > highRevenue:
		return 2.0
	case total > elevatedRevenue:
		return 1.5
	default:
		return 1.0
	}
}

func negativeIncomeFactor(negative bool) float64 {
	if negative {
		return 1.2
	}
	return 1.0
}

// ScoreClusters scores every component with at least MinFacilities
// facilities and keeps those above ScoreThreshold, highest first.
func ScoreClusters(g *domain.Graph, cs []cluster.Component) []RiskScore {
	out := []RiskScore{}
	for _, c := range cs {
		if c.Facilities < MinFacilities {
			continue
		}
		rs := ScoreComposition(c.ID, Compose(g, c))
		if rs.Score > ScoreThreshold {
			out = append(out, rs)
		}
	}
	return Prioritize(out)
}
