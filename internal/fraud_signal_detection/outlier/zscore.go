package outlier

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

const highZ = 3.0

// RevenuePerVisit flags facilities whose revenue per visit is more than
// threshold standard deviations from the mean. Only facilities with
// positive revenue and visits take part. Populations under two samples or
// with zero spread produce no alerts.
func RevenuePerVisit(rows []Row, threshold float64) []Alert {
	var pop []Row
	var values []float64
	for _, r := range rows {
		rev, visits := domain.Val(r.Financial.TotalRevenue), domain.Val(r.Financial.TotalVisits)
		if rev > 0 && visits > 0 {
			pop = append(pop, r)
			values = append(values, rev/visits)
		}
	}

	out := []Alert{}
	if len(values) < 2 {
		return out
	}
	mean, sd := stat.MeanStdDev(values, nil)
	if sd == 0 || math.IsNaN(sd) {
		return out
	}

	for i, v := range values {
		z := (v - mean) / sd
		if math.Abs(z) <= threshold {
			continue
		}
		sev := domain.SeverityMedium
		if math.Abs(z) > highZ {
			sev = domain.SeverityHigh
		}
		r := pop[i]
		out = append(out, Alert{
			FacilityID:   r.Facility.ID,
			FacilityName: r.Facility.Name,
			Metric:       domain.MetricRevenuePerVisit,
			Value:        v,
			ZScore:       &z,
			Score:        math.Abs(z),
			Severity:     sev,
			Revenue:      domain.Val(r.Financial.TotalRevenue),
			Visits:       domain.Val(r.Financial.TotalVisits),
		})
	}
	rank(out)
	return out
}

func rank(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Score != alerts[j].Score {
			return alerts[i].Score > alerts[j].Score
		}
		return alerts[i].FacilityID < alerts[j].FacilityID
	})
}
