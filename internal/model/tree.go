package model

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one node of a fitted decision tree. Leaves have Feature -1 and carry the class
// probability distribution of the training samples that reached them.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     []float64 `json:"v,omitempty"`
}

func (n Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree is a CART classification tree fitted on a bootstrap sample with Gini impurity.
type Tree struct {
	Seed  int64  `json:"seed"`
	Nodes []Node `json:"nodes"`
}

// PredictProba walks the tree for one sample.
func (t *Tree) PredictProba(x []float64) []float64 {
	i := 0

	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}

		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int

	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}

		return 1 + max(walk(n.Left), walk(n.Right))
	}

	if len(t.Nodes) == 0 {
		return 0
	}

	return walk(0)
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

type treeBuilder struct {
	x           [][]float64
	y           []int
	w           []float64
	nClasses    int
	maxFeatures int
	params      Params
	rng         *rand.Rand
	nodes       []Node
}

// fitTree draws a bootstrap sample with the tree's own seed and grows the tree on it.
// classWeight scales every sample of a class.
func fitTree(x [][]float64, y []int, classWeight []float64, nClasses int, params Params, seed int64) *Tree {
	rng := rand.New(rand.NewSource(seed))

	n := len(x)
	draws := make([]float64, n)

	for i := 0; i < n; i++ {
		draws[rng.Intn(n)]++
	}

	w := make([]float64, n)
	idx := make([]int, 0, n)

	for i, c := range draws {
		if c == 0 {
			continue
		}

		w[i] = c * classWeight[y[i]]
		idx = append(idx, i)
	}

	b := &treeBuilder{
		x:           x,
		y:           y,
		w:           w,
		nClasses:    nClasses,
		maxFeatures: maxFeatures(len(x[0])),
		params:      params,
		rng:         rng,
	}

	b.build(idx, 0)

	return &Tree{Seed: seed, Nodes: b.nodes}
}

// maxFeatures is the number of candidate features per split: floor(sqrt(p)), at least 1.
func maxFeatures(p int) int {
	return max(1, int(math.Sqrt(float64(p))))
}

func (b *treeBuilder) distribution(idx []int) ([]float64, float64) {
	dist := make([]float64, b.nClasses)
	total := 0.0

	for _, i := range idx {
		dist[b.y[i]] += b.w[i]
		total += b.w[i]
	}

	return dist, total
}

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	dist, total := b.distribution(idx)

	if b.stop(idx, dist, depth) {
		b.nodes[id].Value = normalize(dist, total)

		return id
	}

	best, ok := b.bestSplit(idx, dist, total)
	if !ok {
		b.nodes[id].Value = normalize(dist, total)

		return id
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))

	for _, i := range idx {
		if b.x[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	b.nodes[id].Feature = best.feature
	b.nodes[id].Threshold = best.threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r

	return id
}

func (b *treeBuilder) stop(idx []int, dist []float64, depth int) bool {
	if len(idx) < 2*b.params.MinSamplesLeaf {
		return true
	}

	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return true
	}

	nonZero := 0

	for _, v := range dist {
		if v > 0 {
			nonZero++
		}
	}

	return nonZero <= 1
}

// bestSplit evaluates up to maxFeatures non-constant features in random order and returns the
// split with the largest weighted Gini decrease.
func (b *treeBuilder) bestSplit(idx []int, dist []float64, total float64) (split, bool) {
	parent := gini(dist, total)
	best := split{gain: 1e-12}
	found := false
	visited := 0

	sorted := make([]int, len(idx))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	for _, f := range b.rng.Perm(len(b.x[0])) {
		if visited >= b.maxFeatures {
			break
		}

		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}

		visited++

		for c := range left {
			left[c] = 0
			right[c] = dist[c]
		}

		wl := 0.0

		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			left[b.y[i]] += b.w[i]
			right[b.y[i]] -= b.w[i]
			wl += b.w[i]

			lo, hi := b.x[i][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}

			if k+1 < b.params.MinSamplesLeaf || len(sorted)-k-1 < b.params.MinSamplesLeaf {
				continue
			}

			wr := total - wl
			impurity := (wl*gini(left, wl) + wr*gini(right, wr)) / total

			if gain := parent - impurity; gain > best.gain {
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}

				best = split{feature: f, threshold: threshold, gain: gain}
				found = true
			}
		}
	}

	return best, found
}

func gini(dist []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}

	sum := 0.0

	for _, v := range dist {
		p := v / total
		sum += p * p
	}

	return 1 - sum
}

func normalize(dist []float64, total float64) []float64 {
	out := make([]float64, len(dist))
	if total <= 0 {
		return out
	}

	for i, v := range dist {
		out[i] = v / total
	}

	return out
}
