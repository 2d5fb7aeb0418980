package export

import (
	"fmt"
	"strings"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/cluster"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/scoring"
)

var attributeStyle = map[domain.NodeKind]string{
	domain.NodeOwner:   `shape=ellipse,style="filled",fillcolor="#fde2e4"`,
	domain.NodeAdmin:   `shape=ellipse,style="filled",fillcolor="#e2ece9"`,
	domain.NodePhone:   `shape=diamond,style="filled",fillcolor="#fff3cd"`,
	domain.NodeAddress: `shape=house,style="filled",fillcolor="#dfe7fd"`,
}

// ToDOT renders the surfaced clusters as one subgraph each. Only nodes of
// scored clusters are emitted, so the output stays readable on large
// snapshots.
func ToDOT(g *domain.Graph, comps []cluster.Component, ranked []scoring.RiskScore, title string) string {
	var b strings.Builder
	b.WriteString("graph G {\n  rankdir=LR;\n  node [shape=box, style=rounded];\n")
	if title != "" {
		b.WriteString(fmt.Sprintf(`  labelloc="t"; label=%q; fontname="Helvetica";`, title))
		b.WriteString("\n")
	}

	for rank, s := range ranked {
		ids := members(comps, s.ClusterID)
		if len(ids) == 0 {
			continue
		}
		in := make(map[string]bool, len(ids))
		for _, id := range ids {
			in[id] = true
		}

		b.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", s.ClusterID))
		b.WriteString(fmt.Sprintf("    label=\"#%d score %.1f\";\n", rank+1, s.Score))
		for _, id := range ids {
			n := g.Nodes[id]
			if n == nil {
				continue
			}
			b.WriteString(fmt.Sprintf("    %q [label=%q, %s];\n", id, nodeLabel(n), nodeStyle(n)))
		}
		b.WriteString("  }\n")

		for _, e := range g.Edges {
			if in[e.From] && in[e.To] {
				b.WriteString(fmt.Sprintf("  %q -- %q [label=%q];\n", e.From, e.To, string(e.Type)))
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func nodeLabel(n *domain.Node) string {
	switch d := n.Data.(type) {
	case domain.FacilityNode:
		if d.Name != "" {
			return d.Name
		}
		return d.FacilityID
	case domain.AttributeNode:
		return d.Value
	}
	return n.ID
}

func nodeStyle(n *domain.Node) string {
	if d, ok := n.Data.(domain.FacilityNode); ok {
		if d.NetIncome != nil && *d.NetIncome < 0 {
			return `shape=box,style="rounded,filled",fillcolor="#f8d7da"`
		}
		return `shape=box,style="rounded,filled",fillcolor="#eef6ff"`
	}
	return attributeStyle[n.Kind()]
}
