package outlier

import (
	"math"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

// MarginBounds are the profit-margin limits. Margins above Upper or below
// Lower are flagged; |margin| above High is high severity.
type MarginBounds struct {
	Upper float64 `json:"upper" yaml:"upper" toml:"upper"`
	Lower float64 `json:"lower" yaml:"lower" toml:"lower"`
	High  float64 `json:"high" yaml:"high" toml:"high"`
}

func DefaultMarginBounds() MarginBounds {
	return MarginBounds{Upper: 0.5, Lower: -0.2, High: 0.7}
}

// ProfitMargins flags facilities whose net income / revenue falls outside
// the bounds. Facilities without positive revenue or without a reported
// net income are skipped.
func ProfitMargins(rows []Row, b MarginBounds) []Alert {
	out := []Alert{}
	for _, r := range rows {
		rev := domain.Val(r.Financial.TotalRevenue)
		if rev <= 0 || r.Financial.NetIncome == nil {
			continue
		}
		income := *r.Financial.NetIncome
		m := income / rev
		if m <= b.Upper && m >= b.Lower {
			continue
		}
		sev := domain.SeverityMedium
		if math.Abs(m) > b.High {
			sev = domain.SeverityHigh
		}
		lower, upper := b.Lower, b.Upper
		out = append(out, Alert{
			FacilityID:   r.Facility.ID,
			FacilityName: r.Facility.Name,
			Metric:       domain.MetricProfitMargin,
			Value:        m,
			LowerBound:   &lower,
			UpperBound:   &upper,
			Score:        math.Abs(m),
			Severity:     sev,
			Revenue:      rev,
			NetIncome:    income,
		})
	}
	rank(out)
	return out
}
