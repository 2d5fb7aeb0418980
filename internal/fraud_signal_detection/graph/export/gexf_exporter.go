package export

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

// node attribute columns; missing values are written as ""
var gexfNodeAttrs = []string{"node_type", "name", "category", "in_service", "revenue", "net_income", "visits", "has_financial"}

type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfGraph struct {
	DefaultEdgeType string          `xml:"defaultedgetype,attr"`
	Mode            string          `xml:"mode,attr"`
	Attributes      []gexfAttrClass `xml:"attributes"`
	Nodes           []gexfNode      `xml:"nodes>node"`
	Edges           []gexfEdge      `xml:"edges>edge"`
}

type gexfAttrClass struct {
	Class string     `xml:"class,attr"`
	Attrs []gexfAttr `xml:"attribute"`
}

type gexfAttr struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type gexfNode struct {
	ID     string      `xml:"id,attr"`
	Label  string      `xml:"label,attr"`
	Values []gexfValue `xml:"attvalues>attvalue"`
}

type gexfEdge struct {
	ID     string      `xml:"id,attr"`
	Source string      `xml:"source,attr"`
	Target string      `xml:"target,attr"`
	Values []gexfValue `xml:"attvalues>attvalue"`
}

// WriteGEXF writes the whole linkage graph in GEXF 1.2 for Gephi and
// similar tools.
func WriteGEXF(path string, g *domain.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeGEXF(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func EncodeGEXF(w io.Writer, g *domain.Graph) error {
	doc := gexfDoc{
		XMLNS:   "http://gexf.net/1.2",
		Version: "1.2",
		Graph: gexfGraph{
			DefaultEdgeType: "undirected",
			Mode:            "static",
		},
	}

	nodeClass := gexfAttrClass{Class: "node"}
	for i, title := range gexfNodeAttrs {
		nodeClass.Attrs = append(nodeClass.Attrs, gexfAttr{ID: strconv.Itoa(i), Title: title, Type: "string"})
	}
	edgeClass := gexfAttrClass{Class: "edge", Attrs: []gexfAttr{{ID: "0", Title: "relation", Type: "string"}}}
	doc.Graph.Attributes = []gexfAttrClass{nodeClass, edgeClass}

	for _, id := range g.NodeIDs() {
		n := g.Nodes[id]
		values := gexfValues(n)
		doc.Graph.Nodes = append(doc.Graph.Nodes, gexfNode{ID: id, Label: nodeLabel(n), Values: values})
	}
	for i, e := range g.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{
			ID:     strconv.Itoa(i),
			Source: e.From,
			Target: e.To,
			Values: []gexfValue{{For: "0", Value: string(e.Type)}},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func gexfValues(n *domain.Node) []gexfValue {
	vals := make([]string, len(gexfNodeAttrs))
	vals[0] = string(n.Kind())
	switch d := n.Data.(type) {
	case domain.FacilityNode:
		vals[1] = d.Name
		vals[2] = d.Category
		vals[3] = strconv.FormatBool(d.InService)
		vals[4] = optional(d.Revenue)
		vals[5] = optional(d.NetIncome)
		vals[6] = optional(d.Visits)
		vals[7] = strconv.FormatBool(d.HasFinancial)
	case domain.AttributeNode:
		vals[1] = d.Value
	}

	out := make([]gexfValue, len(vals))
	for i, v := range vals {
		out[i] = gexfValue{For: strconv.Itoa(i), Value: v}
	}
	return out
}

func optional(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
