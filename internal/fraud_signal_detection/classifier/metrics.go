package classifier

import "sort"

// Metrics are held-out classification scores. Undefined ratios are 0.
type Metrics struct {
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	AUC       float64 `json:"roc_auc" yaml:"roc_auc"`
}

func Evaluate(truth, pred []int) Metrics {
	var tp, fp, fn, correct int
	for i := range truth {
		if truth[i] == pred[i] {
			correct++
		}
		switch {
		case pred[i] == 1 && truth[i] == 1:
			tp++
		case pred[i] == 1 && truth[i] == 0:
			fp++
		case pred[i] == 0 && truth[i] == 1:
			fn++
		}
	}
	m := Metrics{
		Accuracy:  ratio(correct, len(truth)),
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// AUC is the area under the ROC curve, computed as the Mann-Whitney rank
// statistic with tied scores sharing their average rank. It is 0 when truth
// holds a single class.
func AUC(truth []int, scores []float64) float64 {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	ranks := make([]float64, len(scores))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var pos, neg int
	rankSum := 0.0
	for i, t := range truth {
		if t == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0
	}
	return (rankSum - float64(pos*(pos+1))/2) / float64(pos*neg)
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
