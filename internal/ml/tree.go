package ml

import (
	"fmt"
	"math"
)

// tree is a fitted binary decision tree in array form. Node 0 is the root; a node is
// a leaf when left[i] == -1. Every child index is greater than its parent's, so a
// walk from the root always terminates.
type tree struct {
	left      []int
	right     []int
	feature   []int
	threshold []float64
	probas    [][]float64 // normalized class weights per leaf
}

func newTree(a treeArrays, nClasses, nFeatures int) (*tree, error) {
	n := len(a.ChildrenLeft)
	if n == 0 {
		return nil, fmt.Errorf("tree has no nodes")
	}
	if len(a.ChildrenRight) != n || len(a.Feature) != n || len(a.Threshold) != n || len(a.Value) != n {
		return nil, fmt.Errorf("tree node arrays differ in length")
	}

	t := &tree{
		left:      append([]int(nil), a.ChildrenLeft...),
		right:     append([]int(nil), a.ChildrenRight...),
		feature:   append([]int(nil), a.Feature...),
		threshold: append([]float64(nil), a.Threshold...),
		probas:    make([][]float64, n),
	}

	for i := 0; i < n; i++ {
		l, r := t.left[i], t.right[i]
		if l == -1 || r == -1 {
			if l != r {
				return nil, fmt.Errorf("node %d has a single child", i)
			}
			p, err := normalize(a.Value[i], nClasses)
			if err != nil {
				return nil, fmt.Errorf("leaf %d: %w", i, err)
			}
			t.probas[i] = p
			continue
		}
		if l <= i || l >= n || r <= i || r >= n {
			return nil, fmt.Errorf("node %d has children out of range (%d, %d)", i, l, r)
		}
		if f := t.feature[i]; f < 0 || f >= nFeatures {
			return nil, fmt.Errorf("node %d splits on feature %d outside [0, %d)", i, f, nFeatures)
		}
		if math.IsNaN(t.threshold[i]) {
			return nil, fmt.Errorf("node %d has NaN threshold", i)
		}
	}
	return t, nil
}

func normalize(weights []float64, nClasses int) ([]float64, error) {
	if len(weights) != nClasses {
		return nil, fmt.Errorf("expected %d class weights, got %d", nClasses, len(weights))
	}
	var sum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("invalid class weight %v", w)
		}
		sum += w
	}
	if sum == 0 {
		return nil, fmt.Errorf("class weights sum to zero")
	}
	out := make([]float64, nClasses)
	for i, w := range weights {
		out[i] = w / sum
	}
	return out, nil
}

// leaf returns the class probabilities of the leaf x falls into.
func (t *tree) leaf(x []float64) []float64 {
	node := 0
	for t.left[node] != -1 {
		if x[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return t.probas[node]
}

// DecisionTree is a single fitted classification tree.
type DecisionTree struct {
	tree      *tree
	classes   []int
	nFeatures int
}

func (d *DecisionTree) Classes() []int {
	return append([]int(nil), d.classes...)
}

func (d *DecisionTree) PredictProba(X [][]float64) ([][]float64, error) {
	if err := checkWidth(X, d.nFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		out[i] = append([]float64(nil), d.tree.leaf(x)...)
	}
	return out, nil
}

func (d *DecisionTree) Predict(X [][]float64) ([]int, error) {
	probas, err := d.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labels(probas, d.classes), nil
}

// RandomForest averages the class probabilities of its trees.
type RandomForest struct {
	trees     []*tree
	classes   []int
	nFeatures int
}

func (f *RandomForest) Classes() []int {
	return append([]int(nil), f.classes...)
}

func (f *RandomForest) PredictProba(X [][]float64) ([][]float64, error) {
	if err := checkWidth(X, f.nFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		sum := make([]float64, len(f.classes))
		for _, t := range f.trees {
			for c, p := range t.leaf(x) {
				sum[c] += p
			}
		}
		for c := range sum {
			sum[c] /= float64(len(f.trees))
		}
		out[i] = sum
	}
	return out, nil
}

func (f *RandomForest) Predict(X [][]float64) ([]int, error) {
	probas, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labels(probas, f.classes), nil
}

func labels(probas [][]float64, classes []int) []int {
	out := make([]int, len(probas))
	for i, p := range probas {
		out[i] = classes[argmax(p)]
	}
	return out
}
