package export

import (
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/cluster"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/scoring"
)

// DefaultClusterExport is how many ranked clusters SuspiciousClusters keeps.
const DefaultClusterExport = 50

type ClusterFacility struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Revenue   *float64 `json:"revenue"`
	NetIncome *float64 `json:"net_income"`
	Visits    *float64 `json:"visits"`
}

// SuspiciousCluster is one row of suspicious_clusters.json.
type SuspiciousCluster struct {
	Rank              int               `json:"rank"`
	Score             float64           `json:"score"`
	FacilityCount     int               `json:"facility_count"`
	TotalRevenue      float64           `json:"total_revenue"`
	SharedPhones      int               `json:"shared_phones"`
	SharedAddresses   int               `json:"shared_addresses"`
	SharedAdmins      int               `json:"shared_admins"`
	HasNegativeIncome bool              `json:"has_negative_income"`
	Facilities        []ClusterFacility `json:"facilities"`
}

// SuspiciousClusters flattens the first n prioritized scores. n <= 0 keeps
// DefaultClusterExport.
func SuspiciousClusters(ranked []scoring.RiskScore, n int) []SuspiciousCluster {
	ranked = scoring.Top(ranked, limit(n, DefaultClusterExport))
	out := make([]SuspiciousCluster, 0, len(ranked))
	for i, s := range ranked {
		sc := SuspiciousCluster{
			Rank:              i + 1,
			Score:             s.Score,
			FacilityCount:     s.FacilityCount,
			TotalRevenue:      s.TotalRevenue,
			SharedPhones:      s.SharedPhones,
			SharedAddresses:   s.SharedAddresses,
			SharedAdmins:      s.SharedAdmins,
			HasNegativeIncome: s.HasNegativeIncome,
			Facilities:        make([]ClusterFacility, 0, len(s.Facilities)),
		}
		for _, f := range s.Facilities {
			sc.Facilities = append(sc.Facilities, ClusterFacility{
				ID:        f.FacilityID,
				Name:      f.Name,
				Category:  f.Category,
				Revenue:   f.Revenue,
				NetIncome: f.NetIncome,
				Visits:    f.Visits,
			})
		}
		out = append(out, sc)
	}
	return out
}

// members returns the node ids of the cluster a score was computed for.
func members(comps []cluster.Component, id int) []string {
	if id >= 0 && id < len(comps) && comps[id].ID == id {
		return comps[id].Nodes
	}
	for _, c := range comps {
		if c.ID == id {
			return c.Nodes
		}
	}
	return nil
}

// attributes returns the attribute values of type t among ids.
func attributes(g *domain.Graph, ids []string, t domain.AttributeType) []string {
	var out []string
	for _, id := range ids {
		n, ok := g.Nodes[id]
		if !ok {
			continue
		}
		if a, ok := n.Data.(domain.AttributeNode); ok && a.Type == t {
			out = append(out, a.Value)
		}
	}
	return out
}

func limit(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
