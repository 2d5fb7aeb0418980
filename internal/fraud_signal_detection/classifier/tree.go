package classifier

import "sort"

// treeNode is a node of a second-order regression tree fitted to logistic
// loss gradients.
type treeNode struct {
	IsLeaf       bool      `json:"is_leaf"`
	Value        float64   `json:"value,omitempty"`
	FeatureIndex int       `json:"feature_index,omitempty"`
	Threshold    float64   `json:"threshold,omitempty"`
	Left         *treeNode `json:"left,omitempty"`
	Right        *treeNode `json:"right,omitempty"`
}

type treeBuilder struct {
	maxDepth       int
	maxLeaves      int
	lambda         float64
	minChildWeight float64
	// features is the column sample the current tree may split on
	features []int
	// gains accumulates split gain per feature for importances
	gains  []float64
	splits []int
}

func (b *treeBuilder) leaf(grad, hess []float64, indices []int) *treeNode {
	G, H := sums(grad, hess, indices)
	return &treeNode{IsLeaf: true, Value: -G / (H + b.lambda)}
}

// split turns n into an inner node and returns the children's rows.
func (b *treeBuilder) split(n *treeNode, X [][]float64, indices []int, feature int, threshold, gain float64) (left, right []int) {
	for _, i := range indices {
		if X[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.gains[feature] += gain
	b.splits[feature]++
	n.IsLeaf = false
	n.Value = 0
	n.FeatureIndex = feature
	n.Threshold = threshold
	return left, right
}

// buildDepthwise grows every node level by level until maxDepth.
func (b *treeBuilder) buildDepthwise(X [][]float64, grad, hess []float64, indices []int, depth int) *treeNode {
	n := b.leaf(grad, hess, indices)
	if depth >= b.maxDepth || len(indices) < 2 {
		return n
	}
	feature, threshold, gain := b.findBestSplit(X, grad, hess, indices)
	if gain <= 0 {
		return n
	}
	left, right := b.split(n, X, indices, feature, threshold, gain)
	n.Left = b.buildDepthwise(X, grad, hess, left, depth+1)
	n.Right = b.buildDepthwise(X, grad, hess, right, depth+1)
	return n
}

type leafCandidate struct {
	node      *treeNode
	indices   []int
	depth     int
	feature   int
	threshold float64
	gain      float64
}

// buildLeafwise always splits the leaf with the largest gain next, until
// the tree has maxLeaves leaves or no leaf can be split.
func (b *treeBuilder) buildLeafwise(X [][]float64, grad, hess []float64, indices []int) *treeNode {
	root := b.leaf(grad, hess, indices)
	var pending []*leafCandidate
	consider := func(n *treeNode, idx []int, depth int) {
		if depth >= b.maxDepth || len(idx) < 2 {
			return
		}
		feature, threshold, gain := b.findBestSplit(X, grad, hess, idx)
		if gain <= 0 {
			return
		}
		pending = append(pending, &leafCandidate{node: n, indices: idx, depth: depth, feature: feature, threshold: threshold, gain: gain})
	}
	consider(root, indices, 0)

	for leaves := 1; len(pending) > 0 && leaves < b.maxLeaves; leaves++ {
		best := 0
		for k, c := range pending {
			if c.gain > pending[best].gain {
				best = k
			}
		}
		c := pending[best]
		pending = append(pending[:best], pending[best+1:]...)

		left, right := b.split(c.node, X, c.indices, c.feature, c.threshold, c.gain)
		c.node.Left = b.leaf(grad, hess, left)
		c.node.Right = b.leaf(grad, hess, right)
		consider(c.node.Left, left, c.depth+1)
		consider(c.node.Right, right, c.depth+1)
	}
	return root
}

// findBestSplit scans the sampled features for the midpoint threshold with
// the largest structure-score gain.
func (b *treeBuilder) findBestSplit(X [][]float64, grad, hess []float64, indices []int) (int, float64, float64) {
	G, H := sums(grad, hess, indices)
	parent := G * G / (H + b.lambda)
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0

	order := append([]int(nil), indices...)
	for _, f := range b.features {
		sort.SliceStable(order, func(a, c int) bool { return X[order[a]][f] < X[order[c]][f] })

		GL, HL := 0.0, 0.0
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			GL += grad[i]
			HL += hess[i]
			cur, next := X[i][f], X[order[k+1]][f]
			if cur == next {
				continue
			}
			GR, HR := G-GL, H-HL
			if HL < b.minChildWeight || HR < b.minChildWeight {
				continue
			}
			gain := GL*GL/(HL+b.lambda) + GR*GR/(HR+b.lambda) - parent
			if gain > bestGain {
				bestFeature, bestThreshold, bestGain = f, (cur+next)/2, gain
			}
		}
	}
	if bestFeature < 0 {
		return 0, 0, 0
	}
	return bestFeature, bestThreshold, bestGain
}

func sums(grad, hess []float64, indices []int) (float64, float64) {
	G, H := 0.0, 0.0
	for _, i := range indices {
		G += grad[i]
		H += hess[i]
	}
	return G, H
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.IsLeaf {
		if x[n.FeatureIndex] < n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// leaves counts the leaves under n.
func (n *treeNode) leaves() int {
	if n.IsLeaf {
		return 1
	}
	return n.Left.leaves() + n.Right.leaves()
}
