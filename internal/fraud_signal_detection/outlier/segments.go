package outlier

import (
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

const unknownSegment = "unknown"

// Segment aggregates the financial join over facilities sharing a county
// or a category.
type Segment struct {
	Key           string  `json:"key" yaml:"key"`
	Facilities    int     `json:"facilities" yaml:"facilities"`
	TotalCapacity int     `json:"total_capacity" yaml:"total_capacity"`
	TotalRevenue  float64 `json:"total_revenue" yaml:"total_revenue"`
	MeanRevenue   float64 `json:"mean_revenue" yaml:"mean_revenue"`
	MedianRevenue float64 `json:"median_revenue" yaml:"median_revenue"`
	TotalIncome   float64 `json:"total_net_income" yaml:"total_net_income"`
	MeanIncome    float64 `json:"mean_net_income" yaml:"mean_net_income"`
	TotalVisits   float64 `json:"total_visits" yaml:"total_visits"`
}

// ByCounty segments rows by county, highest total revenue first.
func ByCounty(rows []Row) []Segment {
	return segment(rows, func(r Row) string { return r.Facility.County })
}

// ByCategory segments rows by facility category, highest total revenue first.
func ByCategory(rows []Row) []Segment {
	return segment(rows, func(r Row) string { return r.Facility.Category })
}

func segment(rows []Row, key func(Row) string) []Segment {
	type acc struct {
		seg      Segment
		revenues []float64
		incomes  int
	}
	byKey := map[string]*acc{}
	for _, r := range rows {
		k := strings.TrimSpace(key(r))
		if k == "" {
			k = unknownSegment
		}
		a, ok := byKey[k]
		if !ok {
			a = &acc{seg: Segment{Key: k}}
			byKey[k] = a
		}
		a.seg.Facilities++
		a.seg.TotalCapacity += r.Facility.Capacity
		a.seg.TotalVisits += domain.Val(r.Financial.TotalVisits)
		if v := r.Financial.TotalRevenue; v != nil {
			a.seg.TotalRevenue += *v
			a.revenues = append(a.revenues, *v)
		}
		if v := r.Financial.NetIncome; v != nil {
			a.seg.TotalIncome += *v
			a.incomes++
		}
	}

	out := make([]Segment, 0, len(byKey))
	for _, a := range byKey {
		if n := len(a.revenues); n > 0 {
			a.seg.MeanRevenue = a.seg.TotalRevenue / float64(n)
			if med, err := stats.Median(a.revenues); err == nil {
				a.seg.MedianRevenue = med
			}
		}
		if a.incomes > 0 {
			a.seg.MeanIncome = a.seg.TotalIncome / float64(a.incomes)
		}
		out = append(out, a.seg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		return out[i].Key < out[j].Key
	})
	return out
}
