package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// NodeData is the payload of a graph node: either a FacilityNode or an
// AttributeNode. Consumers switch on the concrete type.
type NodeData interface {
	kind() NodeKind
}

// FacilityNode carries the snapshot fields the scorer needs so that scoring
// never re-joins financials.
type FacilityNode struct {
	FacilityID   string   `json:"facility_id" yaml:"facility_id"`
	Name         string   `json:"name" yaml:"name"`
	Category     string   `json:"category" yaml:"category"`
	InService    bool     `json:"in_service" yaml:"in_service"`
	Revenue      *float64 `json:"revenue" yaml:"revenue"`
	NetIncome    *float64 `json:"net_income" yaml:"net_income"`
	Visits       *float64 `json:"visits" yaml:"visits"`
	HasFinancial bool     `json:"has_financial" yaml:"has_financial"`
}

func (FacilityNode) kind() NodeKind { return NodeFacility }

// AttributeNode is a normalized shared value. Identity is (Type, Value).
type AttributeNode struct {
	Type  AttributeType `json:"type" yaml:"type"`
	Value string        `json:"value" yaml:"value"`
}

func (a AttributeNode) kind() NodeKind { return NodeKind(a.Type) }

type Node struct {
	ID   string
	Data NodeData
}

func (n *Node) Kind() NodeKind {
	if n == nil || n.Data == nil {
		return ""
	}
	return n.Data.kind()
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID   string   `json:"id"`
		Kind NodeKind `json:"kind"`
		Data NodeData `json:"data"`
	}{n.ID, n.Kind(), n.Data})
}

// FacilityNodeID and AttributeNodeID build the content-addressed node ids.
func FacilityNodeID(facilityID string) string {
	return "fac:" + facilityID
}

func AttributeNodeID(t AttributeType, value string) string {
	return fmt.Sprintf("%s:%s", t, value)
}

// Edge links one facility to one attribute node.
type Edge struct {
	From string        `json:"from"`
	To   string        `json:"to"`
	Type AttributeType `json:"type"`
}

// Graph is the undirected facility/attribute bipartite graph.
type Graph struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []*Edge          `json:"edges"`
	// adjacency for traversal, both directions
	Adj map[string][]string `json:"-"`

	seen map[[2]string]struct{}
}

func NewGraph() *Graph {
	return &Graph{
		Nodes: map[string]*Node{},
		Edges: []*Edge{},
		Adj:   map[string][]string{},
		seen:  map[[2]string]struct{}{},
	}
}

// AddNode inserts n unless a node with the same id exists. It reports
// whether n was inserted.
func (g *Graph) AddNode(n *Node) bool {
	if _, ok := g.Nodes[n.ID]; ok {
		return false
	}
	g.Nodes[n.ID] = n
	return true
}

// AddEdge links two existing nodes. Repeated edges are ignored.
func (g *Graph) AddEdge(e *Edge) bool {
	key := [2]string{e.From, e.To}
	if _, ok := g.seen[key]; ok {
		return false
	}
	g.seen[key] = struct{}{}
	g.Edges = append(g.Edges, e)
	g.Adj[e.From] = append(g.Adj[e.From], e.To)
	g.Adj[e.To] = append(g.Adj[e.To], e.From)
	return true
}

// NodeIDs returns all node ids in sorted order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of nodes of kind k.
func (g *Graph) Count(k NodeKind) int {
	n := 0
	for _, node := range g.Nodes {
		if node.Kind() == k {
			n++
		}
	}
	return n
}
