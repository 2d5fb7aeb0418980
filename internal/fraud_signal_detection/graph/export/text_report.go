package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/cluster"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/normalize"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/scoring"
)

const (
	DefaultReportClusters = 25
	reportFacilities      = 15
	reportAttributes      = 5
)

// WriteTextReport writes the human-readable cluster report.
func WriteTextReport(path string, g *domain.Graph, comps []cluster.Component, ranked []scoring.RiskScore, n int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := TextReport(f, g, comps, ranked, n); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TextReport renders the summary plus the first n ranked clusters.
func TextReport(w io.Writer, g *domain.Graph, comps []cluster.Component, ranked []scoring.RiskScore, n int) error {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	rule := strings.Repeat("=", 80)

	b.WriteString(rule + "\n")
	b.WriteString("FACILITY NETWORK ANALYSIS REPORT\n")
	b.WriteString("Shared identity clusters with financial data\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("SUMMARY\n" + strings.Repeat("-", 40) + "\n")
	b.WriteString(p.Sprintf("Total nodes in graph: %d\n", len(g.Nodes)))
	b.WriteString(p.Sprintf("Total edges in graph: %d\n", len(g.Edges)))
	b.WriteString(p.Sprintf("Connected components: %d\n", len(comps)))
	b.WriteString(p.Sprintf("Suspicious clusters (score > %.0f): %d\n", scoring.ScoreThreshold, len(ranked)))

	total, negative := 0.0, 0
	for _, s := range ranked {
		total += s.TotalRevenue
		if s.HasNegativeIncome {
			negative++
		}
	}
	b.WriteString(p.Sprintf("\nTotal revenue in suspicious clusters: $%.0f\n", total))
	b.WriteString(p.Sprintf("Clusters with negative income: %d\n\n", negative))

	top := scoring.Top(ranked, limit(n, DefaultReportClusters))
	b.WriteString(fmt.Sprintf("TOP %d SUSPICIOUS CLUSTERS\n", len(top)))
	b.WriteString(strings.Repeat("-", 40) + "\n\n")

	for i, s := range top {
		writeCluster(&b, p, g, members(comps, s.ClusterID), i+1, s)
	}

	b.WriteString("\n" + rule + "\nEND OF REPORT\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeCluster(b *strings.Builder, p *message.Printer, g *domain.Graph, ids []string, rank int, s scoring.RiskScore) {
	sep := strings.Repeat("=", 60)
	b.WriteString(sep + "\n")
	b.WriteString(fmt.Sprintf("CLUSTER #%d - Risk Score: %.1f\n", rank, s.Score))
	b.WriteString(sep + "\n")
	b.WriteString(fmt.Sprintf("  Facilities: %d\n", s.FacilityCount))
	b.WriteString(fmt.Sprintf("  Shared Owners: %d\n", s.SharedOwners))
	b.WriteString(fmt.Sprintf("  Shared Admins: %d\n", s.SharedAdmins))
	b.WriteString(fmt.Sprintf("  Shared Phones: %d\n", s.SharedPhones))
	b.WriteString(fmt.Sprintf("  Shared Addresses: %d\n", s.SharedAddresses))

	b.WriteString("\n  FINANCIAL DATA:\n")
	if s.TotalRevenue != 0 {
		b.WriteString(p.Sprintf("    Total Revenue: $%.0f\n", s.TotalRevenue))
		b.WriteString(p.Sprintf("    Avg Revenue: $%.0f\n", s.AvgRevenue))
	} else {
		b.WriteString("    Total Revenue: N/A\n")
	}
	if s.TotalVisits != 0 {
		b.WriteString(p.Sprintf("    Total Visits: %.0f\n", s.TotalVisits))
	}
	if s.HasNegativeIncome {
		b.WriteString("    HAS NEGATIVE NET INCOME\n")
	}

	b.WriteString("\n  FACILITIES IN CLUSTER:\n")
	for i, f := range s.Facilities {
		if i == reportFacilities {
			b.WriteString(fmt.Sprintf("    ... and %d more\n", len(s.Facilities)-reportFacilities))
			break
		}
		name := f.Name
		if name == "" {
			name = "Unknown"
		}
		if f.Revenue != nil && *f.Revenue != 0 {
			b.WriteString(p.Sprintf("    - %s | Rev: $%.0f\n", name, *f.Revenue))
		} else {
			b.WriteString(fmt.Sprintf("    - %s\n", name))
		}
	}

	if phones := attributes(g, ids, domain.AttrPhone); len(phones) > 0 {
		b.WriteString("\n  SHARED PHONES:\n")
		for _, ph := range head(phones, reportAttributes) {
			b.WriteString("    - " + formatPhone(ph) + "\n")
		}
	}
	if addrs := attributes(g, ids, domain.AttrAddress); len(addrs) > 0 {
		b.WriteString("\n  SHARED ADDRESSES:\n")
		for _, a := range head(addrs, reportAttributes) {
			b.WriteString("    - " + strings.ReplaceAll(a, normalize.AddressSep, ", ") + "\n")
		}
	}
	b.WriteString("\n")
}

func formatPhone(digits string) string {
	if len(digits) < 10 {
		return digits
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:10])
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
