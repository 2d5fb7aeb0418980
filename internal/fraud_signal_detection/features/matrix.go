// Package features builds the numeric facility matrix the anomaly
// detectors and the consensus classifier train on.
package features

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

// Columns is the fixed column order of every Matrix.
var Columns = []string{
	"capacity",
	"total_revenue",
	"total_expenses",
	"net_income",
	"total_visits",
	"total_patients",
	"revenue_per_visit",
	"profit_margin",
	"revenue_per_patient",
	"visits_per_patient",
	"expense_ratio",
	"revenue_per_capacity",
	"log_revenue",
	"log_visits",
}

// Matrix holds one row per facility with positive reported revenue. Row i
// of X describes Facilities[i].
type Matrix struct {
	Facilities []domain.Facility
	Revenue    []float64
	Visits     []float64
	X          [][]float64
}

func (m *Matrix) Rows() int {
	if m == nil {
		return 0
	}
	return len(m.X)
}

// Build assembles the matrix. Missing, NaN and infinite cells are filled
// with the column median, or 0 when the whole column is unusable, so every
// detector sees the same population.
func Build(facilities []domain.Facility, fin *domain.FinancialIndex) *Matrix {
	m := &Matrix{}
	for _, f := range facilities {
		if !f.HasID() {
			continue
		}
		r, ok := fin.Lookup(f)
		if !ok || r.TotalRevenue == nil || *r.TotalRevenue <= 0 {
			continue
		}
		m.Facilities = append(m.Facilities, f)
		m.Revenue = append(m.Revenue, *r.TotalRevenue)
		m.Visits = append(m.Visits, domain.Val(r.TotalVisits))
		m.X = append(m.X, row(f, r))
	}
	impute(m.X)
	return m
}

func row(f domain.Facility, r *domain.FinancialRecord) []float64 {
	capacity := float64(f.Capacity)
	revenue := value(r.TotalRevenue)
	expenses := value(r.TotalExpenses)
	income := value(r.NetIncome)
	visits := value(r.TotalVisits)
	patients := value(r.TotalPatients)

	return []float64{
		capacity,
		revenue,
		expenses,
		income,
		visits,
		patients,
		revenue / visits,
		income / revenue,
		revenue / patients,
		visits / patients,
		expenses / revenue,
		revenue / capacity,
		math.Log1p(revenue),
		math.Log1p(visits),
	}
}

// value maps an unreported field to NaN so imputation can find it.
func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func impute(X [][]float64) {
	if len(X) == 0 {
		return
	}
	for j := range X[0] {
		col := make([]float64, 0, len(X))
		for i := range X {
			if finite(X[i][j]) {
				col = append(col, X[i][j])
			}
		}
		fill := 0.0
		if len(col) > 0 {
			if med, err := stats.Median(col); err == nil {
				fill = med
			}
		}
		for i := range X {
			if !finite(X[i][j]) {
				X[i][j] = fill
			}
		}
	}
}

// Column copies column j of X.
func Column(X [][]float64, j int) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		out[i] = X[i][j]
	}
	return out
}
