package detection

import (
	"fmt"
	"math"
	"sort"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/features"
)

type Config struct {
	Contamination float64 `json:"contamination" yaml:"contamination" toml:"contamination"`
	MinVotes      int     `json:"min_votes" yaml:"min_votes" toml:"min_votes"`
	TopN          int     `json:"top_n" yaml:"top_n" toml:"top_n"`
}

func DefaultConfig() Config {
	return Config{Contamination: 0.1, MinVotes: 2, TopN: 20}
}

// Anomaly is one facility in a detector's top list.
type Anomaly struct {
	FacilityID   string  `json:"facility_id" yaml:"facility_id"`
	FacilityName string  `json:"facility_name" yaml:"facility_name"`
	County       string  `json:"county,omitempty" yaml:"county,omitempty"`
	Capacity     int     `json:"capacity" yaml:"capacity"`
	Revenue      float64 `json:"revenue" yaml:"revenue"`
	Visits       float64 `json:"visits" yaml:"visits"`
	Score        float64 `json:"score" yaml:"score"`
}

type DetectorReport struct {
	Name              string    `json:"model" yaml:"model"`
	Contamination     float64   `json:"contamination" yaml:"contamination"`
	TotalSamples      int       `json:"total_samples" yaml:"total_samples"`
	AnomaliesDetected int       `json:"anomalies_detected" yaml:"anomalies_detected"`
	AnomalyRate       float64   `json:"anomaly_rate" yaml:"anomaly_rate"`
	TopAnomalies      []Anomaly `json:"top_anomalies" yaml:"top_anomalies"`

	Labels []int     `json:"-" yaml:"-"`
	Scores []float64 `json:"-" yaml:"-"`
}

// PseudoLabel is the consensus verdict for one facility. EnsembleScore is
// the mean of the detectors' min-max normalized scores.
type PseudoLabel struct {
	FacilityID     string  `json:"facility_id" yaml:"facility_id"`
	FacilityName   string  `json:"facility_name" yaml:"facility_name"`
	Label          int     `json:"label" yaml:"label"`
	AgreementCount int     `json:"agreement_count" yaml:"agreement_count"`
	EnsembleScore  float64 `json:"ensemble_score" yaml:"ensemble_score"`
}

type Result struct {
	Contamination float64          `json:"contamination" yaml:"contamination"`
	MinVotes      int              `json:"min_votes" yaml:"min_votes"`
	Samples       int              `json:"samples" yaml:"samples"`
	Positives     int              `json:"positives" yaml:"positives"`
	Reports       []DetectorReport `json:"detectors" yaml:"detectors"`
	PseudoLabels  []PseudoLabel    `json:"-" yaml:"-"`
	TopConsensus  []PseudoLabel    `json:"top_consensus" yaml:"top_consensus"`
}

// Labels returns the pseudo-labels in matrix row order.
func (r *Result) Labels() []int {
	out := make([]int, len(r.PseudoLabels))
	for i, p := range r.PseudoLabels {
		out[i] = p.Label
	}
	return out
}

// Vote combines per-detector labels. A row is positive iff at least
// minVotes detectors flagged it; agreement counts the flags.
func Vote(labels [][]int, minVotes int) (votes, agreement []int, err error) {
	if len(labels) == 0 {
		return nil, nil, nil
	}
	n := len(labels[0])
	for i, l := range labels {
		if len(l) != n {
			return nil, nil, fmt.Errorf("detection: detector %d labelled %d rows, want %d", i, len(l), n)
		}
	}
	votes = make([]int, n)
	agreement = make([]int, n)
	for _, l := range labels {
		for i, v := range l {
			if v == 1 {
				agreement[i]++
			}
		}
	}
	for i, a := range agreement {
		if a >= minVotes {
			votes[i] = 1
		}
	}
	return votes, agreement, nil
}

// Run fits every detector on m and derives pseudo-labels by majority vote.
// The voter only sees labels and scores, never which algorithm produced
// them.
func Run(m *features.Matrix, detectors []Detector, cfg Config) (*Result, error) {
	res := &Result{
		Contamination: cfg.Contamination,
		MinVotes:      cfg.MinVotes,
		Samples:       m.Rows(),
		Reports:       []DetectorReport{},
		PseudoLabels:  []PseudoLabel{},
		TopConsensus:  []PseudoLabel{},
	}
	if m.Rows() == 0 {
		return res, nil
	}

	var all [][]int
	for _, d := range detectors {
		labels, scores, err := d.FitPredict(m.X, cfg.Contamination)
		if err != nil {
			return nil, fmt.Errorf("detector %q failed: %w", d.Name(), err)
		}
		if len(labels) != m.Rows() || len(scores) != m.Rows() {
			return nil, fmt.Errorf("detector %q returned %d labels and %d scores for %d rows", d.Name(), len(labels), len(scores), m.Rows())
		}
		all = append(all, labels)
		res.Reports = append(res.Reports, report(d.Name(), m, labels, scores, cfg))
	}

	votes, agreement, err := Vote(all, cfg.MinVotes)
	if err != nil {
		return nil, err
	}

	ensemble := make([]float64, m.Rows())
	for _, r := range res.Reports {
		for i, s := range minMax(r.Scores) {
			ensemble[i] += s / float64(len(res.Reports))
		}
	}

	for i, f := range m.Facilities {
		res.PseudoLabels = append(res.PseudoLabels, PseudoLabel{
			FacilityID:     f.ID,
			FacilityName:   f.Name,
			Label:          votes[i],
			AgreementCount: agreement[i],
			EnsembleScore:  ensemble[i],
		})
		res.Positives += votes[i]
	}

	ranked := append([]PseudoLabel(nil), res.PseudoLabels...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AgreementCount != ranked[j].AgreementCount {
			return ranked[i].AgreementCount > ranked[j].AgreementCount
		}
		return ranked[i].EnsembleScore > ranked[j].EnsembleScore
	})
	for _, p := range ranked {
		if p.Label == 0 || len(res.TopConsensus) >= cfg.TopN {
			break
		}
		res.TopConsensus = append(res.TopConsensus, p)
	}
	return res, nil
}

func report(name string, m *features.Matrix, labels []int, scores []float64, cfg Config) DetectorReport {
	r := DetectorReport{
		Name:          name,
		Contamination: cfg.Contamination,
		TotalSamples:  len(labels),
		TopAnomalies:  []Anomaly{},
		Labels:        labels,
		Scores:        scores,
	}
	for _, l := range labels {
		r.AnomaliesDetected += l
	}
	r.AnomalyRate = float64(r.AnomaliesDetected) / float64(r.TotalSamples) * 100

	idx := make([]int, 0, r.AnomaliesDetected)
	for i, l := range labels {
		if l == 1 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	for _, i := range idx {
		if len(r.TopAnomalies) >= cfg.TopN {
			break
		}
		f := m.Facilities[i]
		r.TopAnomalies = append(r.TopAnomalies, Anomaly{
			FacilityID:   f.ID,
			FacilityName: f.Name,
			County:       f.County,
			Capacity:     f.Capacity,
			Revenue:      m.Revenue[i],
			Visits:       m.Visits[i],
			Score:        scores[i],
		})
	}
	return r
}

func minMax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	if hi <= lo {
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}
