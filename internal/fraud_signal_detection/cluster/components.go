package cluster

import (
	"sort"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

// InterestingFacilities is the facility count at which a component is
// reported as structurally interesting. It does not gate scoring.
const InterestingFacilities = 3

// Component is one connected component of the linkage graph. Nodes mixes
// facility and attribute node ids and is sorted.
type Component struct {
	ID         int      `json:"id" yaml:"id"`
	Nodes      []string `json:"nodes" yaml:"nodes"`
	Facilities int      `json:"facilities" yaml:"facilities"`
}

// Extract returns the connected components of g, largest first. Ties are
// broken by the smallest node id, so the result does not depend on the
// order facilities were inserted in.
func Extract(g *domain.Graph) []Component {
	if g == nil {
		return nil
	}

	visited := make(map[string]bool, len(g.Nodes))
	var out []Component

	for _, start := range g.NodeIDs() {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue := []string{start}
		var members []string
		facilities := 0

		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			members = append(members, id)
			if g.Nodes[id].Kind() == domain.NodeFacility {
				facilities++
			}
			for _, next := range g.Adj[id] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}

		sort.Strings(members)
		out = append(out, Component{Nodes: members, Facilities: facilities})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Nodes) != len(out[j].Nodes) {
			return len(out[i].Nodes) > len(out[j].Nodes)
		}
		return out[i].Nodes[0] < out[j].Nodes[0]
	})
	for i := range out {
		out[i].ID = i
	}
	return out
}

type Summary struct {
	Components  int     `json:"components" yaml:"components"`
	Largest     int     `json:"largest" yaml:"largest"`
	Smallest    int     `json:"smallest" yaml:"smallest"`
	MeanSize    float64 `json:"mean_size" yaml:"mean_size"`
	Interesting int     `json:"interesting" yaml:"interesting"`
}

// Summarize reports component size statistics and how many components hold
// at least InterestingFacilities facilities.
func Summarize(cs []Component) Summary {
	s := Summary{Components: len(cs)}
	if len(cs) == 0 {
		return s
	}
	total := 0
	s.Smallest = len(cs[0].Nodes)
	for _, c := range cs {
		n := len(c.Nodes)
		total += n
		if n > s.Largest {
			s.Largest = n
		}
		if n < s.Smallest {
			s.Smallest = n
		}
		if c.Facilities >= InterestingFacilities {
			s.Interesting++
		}
	}
	s.MeanSize = float64(total) / float64(len(cs))
	return s
}
