package ml

import (
	"math"
	"math/rand"
	"sort"

	"github.com/m-mizutani/goerr/v2"
)

// ForestParams controls random forest training. Zero values fall back to
// the defaults used by the production model.
type ForestParams struct {
	NumTrees        int   `json:"num_trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	Seed            int64 `json:"seed"`
}

// DefaultForestParams returns the production defaults: 100 trees capped at
// depth 10.
func DefaultForestParams() ForestParams {
	return ForestParams{NumTrees: 100, MaxDepth: 10, MinSamplesSplit: 2, Seed: 42}
}

func (p ForestParams) withDefaults() ForestParams {
	d := DefaultForestParams()
	if p.NumTrees <= 0 {
		p.NumTrees = d.NumTrees
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = d.MinSamplesSplit
	}
	return p
}

// Forest is a random forest of CART classification trees
type Forest struct {
	Params      ForestParams `json:"params"`
	NumClasses  int          `json:"num_classes"`
	NumFeatures int          `json:"num_features"`
	Trees       []*treeNode  `json:"trees"`
	Importances []float64    `json:"importances"`
}

type treeNode struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
	Probs     []float64 `json:"p,omitempty"`
	Leaf      bool      `json:"leaf,omitempty"`
}

// TrainForest fits a random forest on the labeled matrix. Labels are class
// indices in [0, numClasses). Training is deterministic for a given seed.
func TrainForest(x [][]float64, y []int, numClasses int, params ForestParams) (*Forest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, goerr.New("training matrix and labels must be non-empty and aligned",
			goerr.V("rows", len(x)), goerr.V("labels", len(y)))
	}
	params = params.withDefaults()

	f := &Forest{
		Params:      params,
		NumClasses:  numClasses,
		NumFeatures: len(x[0]),
		Importances: make([]float64, len(x[0])),
	}

	rng := rand.New(rand.NewSource(params.Seed))
	numCandidates := int(math.Ceil(math.Sqrt(float64(f.NumFeatures))))

	for t := 0; t < params.NumTrees; t++ {
		// Bootstrap sample with replacement
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = rng.Intn(len(x))
		}
		b := &treeBuilder{
			x: x, y: y,
			numClasses:    numClasses,
			numCandidates: numCandidates,
			params:        params,
			rng:           rng,
			importances:   f.Importances,
		}
		f.Trees = append(f.Trees, b.build(idx, 0))
	}

	// Normalize accumulated impurity decreases
	var total float64
	for _, v := range f.Importances {
		total += v
	}
	if total > 0 {
		for i := range f.Importances {
			f.Importances[i] /= total
		}
	}
	return f, nil
}

type treeBuilder struct {
	x             [][]float64
	y             []int
	numClasses    int
	numCandidates int
	params        ForestParams
	rng           *rand.Rand
	importances   []float64
}

func (b *treeBuilder) build(idx []int, depth int) *treeNode {
	counts := b.classCounts(idx)
	if depth >= b.params.MaxDepth || len(idx) < b.params.MinSamplesSplit || pure(counts) {
		return b.leaf(counts, len(idx))
	}

	feature, threshold, gain, ok := b.bestSplit(idx, counts)
	if !ok {
		return b.leaf(counts, len(idx))
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.leaf(counts, len(idx))
	}

	b.importances[feature] += gain * float64(len(idx))

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      b.build(left, depth+1),
		Right:     b.build(right, depth+1),
	}
}

func (b *treeBuilder) leaf(counts []int, total int) *treeNode {
	probs := make([]float64, b.numClasses)
	if total > 0 {
		for c, n := range counts {
			probs[c] = float64(n) / float64(total)
		}
	}
	return &treeNode{Leaf: true, Probs: probs}
}

func (b *treeBuilder) classCounts(idx []int) []int {
	counts := make([]int, b.numClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

func pure(counts []int) bool {
	nonZero := 0
	for _, n := range counts {
		if n > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		g -= p * p
	}
	return g
}

// bestSplit evaluates a random subset of features and returns the split
// with the largest Gini impurity decrease.
func (b *treeBuilder) bestSplit(idx []int, parentCounts []int) (feature int, threshold, gain float64, ok bool) {
	parentGini := gini(parentCounts, len(idx))

	candidates := b.rng.Perm(len(b.x[0]))[:b.numCandidates]
	sort.Ints(candidates)

	bestGain := 0.0
	for _, f := range candidates {
		// Sort sample indices by feature value and sweep thresholds
		sorted := append([]int(nil), idx...)
		sort.Slice(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

		leftCounts := make([]int, b.numClasses)
		rightCounts := append([]int(nil), parentCounts...)

		for i := 0; i < len(sorted)-1; i++ {
			c := b.y[sorted[i]]
			leftCounts[c]++
			rightCounts[c]--

			cur, next := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if cur == next {
				continue
			}

			nLeft, nRight := i+1, len(sorted)-i-1
			weighted := (float64(nLeft)*gini(leftCounts, nLeft) +
				float64(nRight)*gini(rightCounts, nRight)) / float64(len(sorted))

			if g := parentGini - weighted; g > bestGain {
				bestGain = g
				feature = f
				threshold = (cur + next) / 2
				ok = true
			}
		}
	}
	return feature, threshold, bestGain, ok
}

// Predict returns the majority class index and the tree-averaged class
// probabilities for one feature vector.
func (f *Forest) Predict(features []float64) (int, []float64, error) {
	if len(features) != f.NumFeatures {
		return 0, nil, goerr.New("feature vector width mismatch",
			goerr.V("want", f.NumFeatures), goerr.V("got", len(features)))
	}

	probs := make([]float64, f.NumClasses)
	for _, tree := range f.Trees {
		node := tree
		for !node.Leaf {
			if features[node.Feature] <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		for c, p := range node.Probs {
			probs[c] += p
		}
	}
	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}

	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return best, probs, nil
}
