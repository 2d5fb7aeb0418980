package service

import (
	"fmt"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/scoring"
)

// highRiskScore is the cluster score from which a cluster alert is high
// severity.
const highRiskScore = 10.0

// BuildAlerts turns a report into persisted alerts, at most perType of each
// alert type, highest ranked first.
func BuildAlerts(rep *Report, perType int) []domain.FraudAlert {
	var out []domain.FraudAlert

	for _, a := range head(rep.Outliers.RevenuePerVisit, perType) {
		z := 0.0
		if a.ZScore != nil {
			z = *a.ZScore
		}
		out = append(out, domain.FraudAlert{
			AlertType:    domain.AlertHighRevenuePerVisit,
			Severity:     a.Severity,
			FacilityID:   a.FacilityID,
			FacilityName: a.FacilityName,
			Description:  fmt.Sprintf("Revenue per visit: $%.2f (Z-score: %.2f)", a.Value, z),
			Metrics:      domain.Attrs{"revenue": a.Revenue, "total_visits": a.Visits, "z_score": z},
		})
	}

	for _, a := range head(rep.Outliers.ProfitMargins, perType) {
		out = append(out, domain.FraudAlert{
			AlertType:    domain.AlertExtremeProfitMargin,
			Severity:     a.Severity,
			FacilityID:   a.FacilityID,
			FacilityName: a.FacilityName,
			Description:  fmt.Sprintf("Profit margin: %.1f%% (Revenue: $%.0f)", a.Value*100, a.Revenue),
			Metrics:      domain.Attrs{"revenue": a.Revenue, "net_income": a.NetIncome, "margin": a.Value},
		})
	}

	for _, s := range scoring.Top(rep.Structural.Clusters, perType) {
		if len(s.Facilities) == 0 {
			continue
		}
		anchor := s.Facilities[0]
		ids := make([]string, len(s.Facilities))
		for i, f := range s.Facilities {
			ids[i] = f.FacilityID
		}
		sev := domain.SeverityMedium
		if s.Score >= highRiskScore {
			sev = domain.SeverityHigh
		}
		out = append(out, domain.FraudAlert{
			AlertType:    domain.AlertSharedIdentityCluster,
			Severity:     sev,
			FacilityID:   anchor.FacilityID,
			FacilityName: anchor.Name,
			Description: fmt.Sprintf("Cluster of %d facilities sharing %d phones, %d addresses, %d admins (risk score %.1f)",
				s.FacilityCount, s.SharedPhones, s.SharedAddresses, s.SharedAdmins, s.Score),
			Metrics: domain.Attrs{
				"cluster_id":          s.ClusterID,
				"score":               s.Score,
				"facility_ids":        ids,
				"total_revenue":       s.TotalRevenue,
				"has_negative_income": s.HasNegativeIncome,
			},
		})
	}

	if ens := rep.ML.Ensemble; ens != nil {
		detectors := len(ens.Reports)
		for _, p := range head(ens.TopConsensus, perType) {
			sev := domain.SeverityMedium
			if p.AgreementCount == detectors {
				sev = domain.SeverityHigh
			}
			out = append(out, domain.FraudAlert{
				AlertType:    domain.AlertEnsembleAnomaly,
				Severity:     sev,
				FacilityID:   p.FacilityID,
				FacilityName: p.FacilityName,
				Description:  fmt.Sprintf("Flagged by %d of %d anomaly detectors (ensemble score %.2f)", p.AgreementCount, detectors, p.EnsembleScore),
				Metrics:      domain.Attrs{"agreement": p.AgreementCount, "ensemble_score": p.EnsembleScore},
			})
		}
	}
	return out
}

func head[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
