package main

import (
	"fmt"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/cluster"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/graph/export"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/ingest/mapper"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/ingest/parser"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/scoring"
)

// RunDOT writes the suspicious-cluster graph of a snapshot file without
// running the full analysis.
func RunDOT(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: dot <snapshot.json|yaml> <out.dot>")
	}
	return writeDOT(args[0], args[1])
}

func writeDOT(inPath, outPath string) error {
	snap, _, err := parser.ParseFile(inPath)
	if err != nil {
		return err
	}
	g, _ := mapper.ToGraph(snap.Facilities, domain.NewFinancialIndex(snap.Financials))
	comps := cluster.Extract(g)
	return export.WriteFile(outPath, export.ToDOT(g, comps, scoring.ScoreClusters(g, comps), "Suspicious facility clusters"))
}
