package main

import (
	"context"
	"fmt"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/service"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
)

func RunAnalyze(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: analyze <snapshot.json|yaml> [outDir]")
	}
	out := ""
	if len(args) > 1 {
		out = args[1]
	}

	svc, stores, _, err := setup(ctx, out)
	if err != nil {
		return err
	}
	defer stores.Close(ctx)
	defer logger.Sync()

	res, err := svc.RunFromFile(ctx, args[0])
	if err != nil {
		return err
	}
	printSummary(res)
	return nil
}

func RunAnalyzeDB(ctx context.Context, args []string) error {
	out := ""
	if len(args) > 0 {
		out = args[0]
	}

	svc, stores, _, err := setup(ctx, out)
	if err != nil {
		return err
	}
	defer stores.Close(ctx)
	defer logger.Sync()

	res, err := svc.RunFromStore(ctx)
	if err != nil {
		return err
	}
	printSummary(res)
	return nil
}

func printSummary(res *service.Result) {
	rep := res.Report
	fmt.Printf("Run %s written to %s\n", res.Run.RunID, res.Run.Dir)
	for _, f := range res.Files {
		fmt.Printf("  %s\n", f)
	}

	fmt.Printf("Suspicious clusters (%d):\n", len(rep.Structural.Clusters))
	for i, c := range rep.Structural.Clusters {
		if i == 10 {
			fmt.Printf("  ... %d more\n", len(rep.Structural.Clusters)-i)
			break
		}
		fmt.Printf("  - #%d score %.1f: %d facilities, $%.0f revenue\n", i+1, c.Score, c.FacilityCount, c.TotalRevenue)
	}

	fmt.Printf("Revenue per visit outliers: %d\n", len(rep.Outliers.RevenuePerVisit))
	fmt.Printf("Profit margin outliers: %d\n", len(rep.Outliers.ProfitMargins))
	fmt.Printf("Revenue IQR outliers: %d\n", rep.Outliers.RevenueIQR.OutlierCount)
	if ens := rep.ML.Ensemble; ens != nil {
		fmt.Printf("Ensemble positives: %d of %d\n", ens.Positives, ens.Samples)
	}
	if clf := rep.ML.Classifier; clf != nil {
		if clf.Skipped {
			fmt.Printf("Classifier skipped: %s\n", clf.Reason)
		} else {
			for _, m := range clf.Models {
				fmt.Printf("Classifier %s precision %.3f recall %.3f f1 %.3f auc %.3f\n",
					m.Model, m.Metrics.Precision, m.Metrics.Recall, m.Metrics.F1, m.Metrics.AUC)
			}
		}
	}
	fmt.Printf("Alerts written: %d\n", res.AlertsWritten)
}
