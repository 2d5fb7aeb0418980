package outlier

import (
	"sort"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/features"
)

const maxIQRListed = 50

// IQRReport is a Tukey-fence screen of one financial column. Facilities
// outside [Q1 - k*IQR, Q3 + k*IQR] are listed, most extreme first.
type IQRReport struct {
	Column       string       `json:"column" yaml:"column"`
	Multiplier   float64      `json:"multiplier" yaml:"multiplier"`
	Q1           float64      `json:"q1" yaml:"q1"`
	Q3           float64      `json:"q3" yaml:"q3"`
	LowerBound   float64      `json:"lower_bound" yaml:"lower_bound"`
	UpperBound   float64      `json:"upper_bound" yaml:"upper_bound"`
	TotalCount   int          `json:"total_count" yaml:"total_count"`
	OutlierCount int          `json:"outlier_count" yaml:"outlier_count"`
	OutlierPct   float64      `json:"outlier_percentage" yaml:"outlier_percentage"`
	Outliers     []IQROutlier `json:"outliers" yaml:"outliers"`
}

type IQROutlier struct {
	FacilityID   string  `json:"facility_id" yaml:"facility_id"`
	FacilityName string  `json:"facility_name" yaml:"facility_name"`
	County       string  `json:"county,omitempty" yaml:"county,omitempty"`
	Value        float64 `json:"value" yaml:"value"`
	// Distance is how far Value lies outside the nearer fence.
	Distance float64 `json:"distance" yaml:"distance"`
}

// RevenueIQR screens total revenue with multiplier k. Rows without a
// reported revenue are left out; an empty population gives an empty report.
func RevenueIQR(rows []Row, k float64) IQRReport {
	return IQR(rows, "total_revenue", k, func(r *domain.FinancialRecord) *float64 { return r.TotalRevenue })
}

// IQR screens the column selected by value. Quartiles interpolate linearly
// between ranks.
func IQR(rows []Row, column string, k float64, value func(*domain.FinancialRecord) *float64) IQRReport {
	rep := IQRReport{Column: column, Multiplier: k, Outliers: []IQROutlier{}}

	var pop []Row
	var values []float64
	for _, r := range rows {
		if v := value(r.Financial); v != nil {
			pop = append(pop, r)
			values = append(values, *v)
		}
	}
	rep.TotalCount = len(values)
	if len(values) == 0 {
		return rep
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rep.Q1 = features.Percentile(sorted, 25)
	rep.Q3 = features.Percentile(sorted, 75)
	iqr := rep.Q3 - rep.Q1
	rep.LowerBound = rep.Q1 - k*iqr
	rep.UpperBound = rep.Q3 + k*iqr

	for i, v := range values {
		var dist float64
		switch {
		case v < rep.LowerBound:
			dist = rep.LowerBound - v
		case v > rep.UpperBound:
			dist = v - rep.UpperBound
		default:
			continue
		}
		f := pop[i].Facility
		rep.Outliers = append(rep.Outliers, IQROutlier{
			FacilityID:   f.ID,
			FacilityName: f.Name,
			County:       f.County,
			Value:        v,
			Distance:     dist,
		})
	}
	rep.OutlierCount = len(rep.Outliers)
	rep.OutlierPct = float64(rep.OutlierCount) / float64(rep.TotalCount) * 100

	sort.SliceStable(rep.Outliers, func(i, j int) bool {
		if rep.Outliers[i].Distance != rep.Outliers[j].Distance {
			return rep.Outliers[i].Distance > rep.Outliers[j].Distance
		}
		return rep.Outliers[i].FacilityID < rep.Outliers[j].FacilityID
	})
	if len(rep.Outliers) > maxIQRListed {
		rep.Outliers = rep.Outliers[:maxIQRListed]
	}
	return rep
}
