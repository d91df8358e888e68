package model

import (
	"context"
	"runtime"
	"sync"

	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
)

// Params are the tree-growing hyperparameters shared by every tree of a forest.
type Params struct {
	MaxDepth       int   `json:"max_depth"`
	MinSamplesLeaf int   `json:"min_samples_leaf"`
	RandomState    int64 `json:"random_state"`
}

// RandomForest is a bagged ensemble of CART trees with balanced class weights. It supports warm
// starts: Grow raises the target size and Fit only fits the trees that do not exist yet.
type RandomForest struct {
	NEstimators int     `json:"n_estimators"`
	NClasses    int     `json:"n_classes"`
	NFeatures   int     `json:"n_features"`
	Params      Params  `json:"params"`
	Trees       []*Tree `json:"trees"`
}

func NewRandomForest(nEstimators, nClasses int, params Params) *RandomForest {
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}

	return &RandomForest{
		NEstimators: nEstimators,
		NClasses:    nClasses,
		Params:      params,
	}
}

// Grow raises the target number of trees by n.
func (f *RandomForest) Grow(n int) {
	f.NEstimators += n
}

// Fitted returns the number of trees that have been fitted.
func (f *RandomForest) Fitted() int {
	return len(f.Trees)
}

// BalancedClassWeights returns n / (k * count_c) for every class present in y and 0 for absent ones,
// where k is the number of classes present.
func BalancedClassWeights(y []int, nClasses int) []float64 {
	counts := make([]float64, nClasses)
	for _, c := range y {
		counts[c]++
	}

	present := 0.0

	for _, c := range counts {
		if c > 0 {
			present++
		}
	}

	weights := make([]float64, nClasses)

	for c, count := range counts {
		if count > 0 {
			weights[c] = float64(len(y)) / (present * count)
		}
	}

	return weights
}

func treeSeed(randomState int64, index int) int64 {
	return randomState + int64(index)
}

// Fit fits the trees between Fitted() and NEstimators on x and y. Existing trees are kept as they
// are. It returns the number of trees fitted.
func (f *RandomForest) Fit(ctx context.Context, x [][]float64, y []int) (int, error) {
	if len(x) == 0 || len(x) != len(y) {
		return 0, errors.Newf(errors.ErrCodeNoTrainingData, "cannot fit on %d samples and %d labels", len(x), len(y))
	}

	nFeatures := len(x[0])
	if f.NFeatures == 0 {
		f.NFeatures = nFeatures
	}

	for i, row := range x {
		if len(row) != f.NFeatures {
			return 0, errors.Newf(errors.ErrCodeArtifactIncompatible, "sample %d has %d features, forest expects %d", i, len(row), f.NFeatures)
		}
	}

	for _, c := range y {
		if c < 0 || c >= f.NClasses {
			return 0, errors.Newf(errors.ErrCodeTrainingFailed, "label code %d outside [0, %d)", c, f.NClasses)
		}
	}

	start := len(f.Trees)
	if start >= f.NEstimators {
		return 0, nil
	}

	weights := BalancedClassWeights(y, f.NClasses)
	fresh := make([]*Tree, f.NEstimators-start)

	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < min(runtime.NumCPU(), len(fresh)); w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range jobs {
				fresh[j] = fitTree(x, y, weights, f.NClasses, f.Params, treeSeed(f.Params.RandomState, start+j))
			}
		}()
	}

	var cancelled error

	for j := range fresh {
		if err := ctx.Err(); err != nil {
			cancelled = err

			break
		}

		jobs <- j
	}

	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return 0, cancelled
	}

	f.Trees = append(f.Trees, fresh...)

	return len(fresh), nil
}

// PredictProba averages the leaf distributions of every tree.
func (f *RandomForest) PredictProba(x []float64) []float64 {
	out := make([]float64, f.NClasses)
	if len(f.Trees) == 0 {
		return out
	}

	for _, t := range f.Trees {
		for c, p := range t.PredictProba(x) {
			out[c] += p
		}
	}

	for c := range out {
		out[c] /= float64(len(f.Trees))
	}

	return out
}

// Predict returns the most probable class; ties go to the lower class index.
func (f *RandomForest) Predict(x []float64) int {
	return argmax(f.PredictProba(x))
}

// PredictAll predicts every row of x.
func (f *RandomForest) PredictAll(x [][]float64) []int {
	out := make([]int, len(x))
	for i, row := range x {
		out[i] = f.Predict(row)
	}

	return out
}

func argmax(values []float64) int {
	best := 0

	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}

	return best
}
