package mapper

import (
	"sort"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

// SharedIndex maps each normalized attribute value to the facilities that
// carry it. It only feeds reporting; clustering works off the graph.
type SharedIndex struct {
	byType map[domain.AttributeType]map[string]map[string]struct{}
}

// SharedStat is the "N shared values linking M facilities" line for one
// attribute type.
type SharedStat struct {
	Type             domain.AttributeType `json:"type" yaml:"type"`
	SharedValues     int                  `json:"shared_values" yaml:"shared_values"`
	LinkedFacilities int                  `json:"linked_facilities" yaml:"linked_facilities"`
}

func NewSharedIndex() *SharedIndex {
	return &SharedIndex{byType: map[domain.AttributeType]map[string]map[string]struct{}{}}
}

func (s *SharedIndex) add(t domain.AttributeType, value, facilityID string) {
	values, ok := s.byType[t]
	if !ok {
		values = map[string]map[string]struct{}{}
		s.byType[t] = values
	}
	ids, ok := values[value]
	if !ok {
		ids = map[string]struct{}{}
		values[value] = ids
	}
	ids[facilityID] = struct{}{}
}

// Facilities returns the sorted facility ids carrying value.
func (s *SharedIndex) Facilities(t domain.AttributeType, value string) []string {
	ids := s.byType[t][value]
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Shared returns the values of type t carried by more than one facility.
func (s *SharedIndex) Shared(t domain.AttributeType) []string {
	var out []string
	for v, ids := range s.byType[t] {
		if len(ids) > 1 {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Summary reports, per attribute type, how many values are shared and how
// many distinct facilities they link.
func (s *SharedIndex) Summary() []SharedStat {
	out := make([]SharedStat, 0, len(domain.AttributeTypes))
	for _, t := range domain.AttributeTypes {
		linked := map[string]struct{}{}
		shared := 0
		for _, ids := range s.byType[t] {
			if len(ids) < 2 {
				continue
			}
			shared++
			for id := range ids {
				linked[id] = struct{}{}
			}
		}
		out = append(out, SharedStat{Type: t, SharedValues: shared, LinkedFacilities: len(linked)})
	}
	return out
}
