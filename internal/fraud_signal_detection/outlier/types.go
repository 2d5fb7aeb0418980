package outlier

import "github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"

// Alert flags one facility on one financial ratio. Score is the value the
// alert lists are ranked by: |z| for z-score metrics, |margin| for margins.
type Alert struct {
	FacilityID   string          `json:"facility_id" yaml:"facility_id"`
	FacilityName string          `json:"facility_name" yaml:"facility_name"`
	Metric       domain.Metric   `json:"metric" yaml:"metric"`
	Value        float64         `json:"value" yaml:"value"`
	ZScore       *float64        `json:"z_score,omitempty" yaml:"z_score,omitempty"`
	LowerBound   *float64        `json:"lower_bound,omitempty" yaml:"lower_bound,omitempty"`
	UpperBound   *float64        `json:"upper_bound,omitempty" yaml:"upper_bound,omitempty"`
	Score        float64         `json:"score" yaml:"score"`
	Severity     domain.Severity `json:"severity" yaml:"severity"`
	Revenue      float64         `json:"revenue" yaml:"revenue"`
	Visits       float64         `json:"visits,omitempty" yaml:"visits,omitempty"`
	NetIncome    float64         `json:"net_income,omitempty" yaml:"net_income,omitempty"`
}

// Row is a facility joined to its financial record.
type Row struct {
	Facility  domain.Facility
	Financial *domain.FinancialRecord
}

// Join pairs each facility with its financial record, dropping facilities
// that have none.
func Join(facilities []domain.Facility, fin *domain.FinancialIndex) []Row {
	var rows []Row
	for _, f := range facilities {
		if !f.HasID() {
			continue
		}
		if r, ok := fin.Lookup(f); ok {
			rows = append(rows, Row{Facility: f, Financial: r})
		}
	}
	return rows
}

// FacilityRef is a facility as listed in descriptive groupings.
type FacilityRef struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Capacity int    `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

func ref(f domain.Facility) FacilityRef {
	return FacilityRef{ID: f.ID, Name: f.Name, Category: f.Category, Capacity: f.Capacity}
}

// Group is a set of facilities sharing one normalized key.
type Group struct {
	Key           string        `json:"key" yaml:"key"`
	Facilities    []FacilityRef `json:"facilities" yaml:"facilities"`
	TotalCapacity int           `json:"total_capacity" yaml:"total_capacity"`
}
