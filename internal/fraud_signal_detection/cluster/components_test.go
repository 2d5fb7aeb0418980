package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/ingest/mapper"
)

func TestExtract(t *testing.T) {
	g, _ := mapper.ToGraph([]domain.Facility{
		{ID: "1", Phone: "5551112222"},
		{ID: "2", Phone: "5551112222", OwnerName: "Acme LLC"},
		{ID: "3", OwnerName: "acme llc"},
		{ID: "4", Phone: "5559998888"},
		{ID: "5"},
	}, nil)

	cs := Extract(g)
	require.Len(t, cs, 3)

	assert.Equal(t, 0, cs[0].ID)
	assert.Equal(t, []string{"fac:1", "fac:2", "fac:3", "owner:acme llc", "phone:5551112222"}, cs[0].Nodes)
	assert.Equal(t, 3, cs[0].Facilities)

	assert.Equal(t, []string{"fac:4", "phone:5559998888"}, cs[1].Nodes)
	assert.Equal(t, 1, cs[1].Facilities)

	assert.Equal(t, []string{"fac:5"}, cs[2].Nodes)
	assert.Equal(t, 2, cs[2].ID)
}

func TestExtract_OrderIndependent(t *testing.T) {
	facs := []domain.Facility{
		{ID: "a", Address: "1 Main"},
		{ID: "b", Address: "1 main "},
		{ID: "c", Phone: "5550001111"},
		{ID: "d", Phone: "555 000 1111"},
		{ID: "e"},
	}
	reversed := make([]domain.Facility, len(facs))
	for i, f := range facs {
		reversed[len(facs)-1-i] = f
	}

	g1, _ := mapper.ToGraph(facs, nil)
	g2, _ := mapper.ToGraph(reversed, nil)
	assert.Equal(t, Extract(g1), Extract(g2))
}

func TestExtract_Empty(t *testing.T) {
	assert.Nil(t, Extract(nil))
	assert.Empty(t, Extract(domain.NewGraph()))
}

func TestSummarize(t *testing.T) {
	cs := []Component{
		{Nodes: make([]string, 6), Facilities: 4},
		{Nodes: make([]string, 3), Facilities: 2},
		{Nodes: make([]string, 1), Facilities: 1},
	}
	s := Summarize(cs)
	assert.Equal(t, 3, s.Components)
	assert.Equal(t, 6, s.Largest)
	assert.Equal(t, 1, s.Smallest)
	assert.InDelta(t, 10.0/3.0, s.MeanSize, 1e-9)
	assert.Equal(t, 1, s.Interesting)

	assert.Equal(t, Summary{}, Summarize(nil))
}
