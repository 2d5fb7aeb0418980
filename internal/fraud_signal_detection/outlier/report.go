package outlier

import (
	"math"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

type Config struct {
	ZThreshold         float64      `json:"z_threshold" yaml:"z_threshold" toml:"z_threshold"`
	IQRMultiplier      float64      `json:"iqr_multiplier" yaml:"iqr_multiplier" toml:"iqr_multiplier"`
	Margins            MarginBounds `json:"margins" yaml:"margins" toml:"margins"`
	MissingMinCapacity int          `json:"missing_min_capacity" yaml:"missing_min_capacity" toml:"missing_min_capacity"`
}

func DefaultConfig() Config {
	return Config{
		ZThreshold:         2.0,
		IQRMultiplier:      3.0,
		Margins:            DefaultMarginBounds(),
		MissingMinCapacity: 10,
	}
}

// Stats summarizes the financial join.
type Stats struct {
	Facilities     int     `json:"facilities" yaml:"facilities"`
	WithFinancials int     `json:"with_financials" yaml:"with_financials"`
	TotalRevenue   float64 `json:"total_revenue" yaml:"total_revenue"`
	MinRevenue     float64 `json:"min_revenue" yaml:"min_revenue"`
	AvgRevenue     float64 `json:"avg_revenue" yaml:"avg_revenue"`
	MaxRevenue     float64 `json:"max_revenue" yaml:"max_revenue"`
	TotalVisits    float64 `json:"total_visits" yaml:"total_visits"`
}

func DatasetStats(facilities []domain.Facility, rows []Row) Stats {
	s := Stats{Facilities: len(facilities), WithFinancials: len(rows)}
	n := 0
	s.MinRevenue = math.Inf(1)
	for _, r := range rows {
		s.TotalVisits += domain.Val(r.Financial.TotalVisits)
		if r.Financial.TotalRevenue == nil {
			continue
		}
		v := *r.Financial.TotalRevenue
		n++
		s.TotalRevenue += v
		s.MinRevenue = math.Min(s.MinRevenue, v)
		s.MaxRevenue = math.Max(s.MaxRevenue, v)
	}
	if n == 0 {
		s.MinRevenue = 0
		return s
	}
	s.AvgRevenue = s.TotalRevenue / float64(n)
	return s
}

// Report is the full output of the statistical pipeline.
type Report struct {
	Stats                Stats         `json:"stats" yaml:"stats"`
	RevenuePerVisit      []Alert       `json:"revenue_per_visit" yaml:"revenue_per_visit"`
	ProfitMargins        []Alert       `json:"profit_margins" yaml:"profit_margins"`
	RevenueIQR           IQRReport     `json:"revenue_iqr" yaml:"revenue_iqr"`
	Counties             []Segment     `json:"counties" yaml:"counties"`
	Categories           []Segment     `json:"categories" yaml:"categories"`
	DuplicateAddresses   []Group       `json:"duplicate_addresses" yaml:"duplicate_addresses"`
	SharedAdministrators []Group       `json:"shared_administrators" yaml:"shared_administrators"`
	MissingFinancials    []FacilityRef `json:"missing_financials" yaml:"missing_financials"`
}

// Analyze runs every statistical check over the facility/financial join.
func Analyze(facilities []domain.Facility, fin *domain.FinancialIndex, cfg Config) Report {
	rows := Join(facilities, fin)
	return Report{
		Stats:                DatasetStats(facilities, rows),
		RevenuePerVisit:      RevenuePerVisit(rows, cfg.ZThreshold),
		ProfitMargins:        ProfitMargins(rows, cfg.Margins),
		RevenueIQR:           RevenueIQR(rows, cfg.IQRMultiplier),
		Counties:             ByCounty(rows),
		Categories:           ByCategory(rows),
		DuplicateAddresses:   DuplicateAddresses(facilities),
		SharedAdministrators: SharedAdministrators(facilities),
		MissingFinancials:    MissingFinancials(facilities, fin, cfg.MissingMinCapacity),
	}
}
