package scoring

import "sort"

// Prioritize orders scores highest first; equal scores keep cluster order.
func Prioritize(scores []RiskScore) []RiskScore {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ClusterID < scores[j].ClusterID
	})
	return scores
}

// Top returns at most n scores from an already prioritized list.
func Top(scores []RiskScore, n int) []RiskScore {
	if n <= 0 || n >= len(scores) {
		return scores
	}
	return scores[:n]
}
