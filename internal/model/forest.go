package model

import (
	"fmt"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ForestOptions controls the random forest.
type ForestOptions struct {
	// Trees is the ensemble size.
	Trees int
	// MaxDepth limits tree depth; 0 grows until leaves are pure or too small.
	MaxDepth int
	// MinSamplesSplit is the smallest node that may be split.
	MinSamplesSplit int
	// MinSamplesLeaf is the smallest allowed child.
	MinSamplesLeaf int
	// MaxFeatures is the number of features tried per split; 0 means all.
	MaxFeatures int
	// MaxSamples caps the bootstrap sample size; 0 means the row count.
	MaxSamples int
	// Workers bounds concurrent tree fitting; 0 means GOMAXPROCS.
	Workers int
	Seed    int64
}

// DefaultForestOptions mirrors the usual regressor defaults: 100 fully
// grown trees over all features, seeded with 42.
func DefaultForestOptions() ForestOptions {
	return ForestOptions{
		Trees:           100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

// RandomForest is a bagged ensemble of CART regression trees.
type RandomForest struct {
	opt   ForestOptions
	trees []*regressionTree
}

// NewRandomForest returns an unfitted forest.
func NewRandomForest(opt ForestOptions) *RandomForest {
	if opt.Trees <= 0 {
		opt.Trees = 100
	}
	if opt.MinSamplesSplit < 2 {
		opt.MinSamplesSplit = 2
	}
	if opt.MinSamplesLeaf < 1 {
		opt.MinSamplesLeaf = 1
	}
	return &RandomForest{opt: opt}
}

// Trees returns the number of fitted trees.
func (f *RandomForest) Trees() int { return len(f.trees) }

// Fit trains every tree on its own bootstrap sample. Per-tree seeds are
// drawn from the forest seed before any tree starts, so the result does
// not depend on scheduling.
func (f *RandomForest) Fit(X *mat.Dense, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return ErrNoRows
	}
	if len(y) != n {
		return fmt.Errorf("random forest: %d targets for %d rows", len(y), n)
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = X.RawRowView(i)
	}
	master := rand.New(rand.NewSource(f.opt.Seed))
	seeds := make([]int64, f.opt.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}
	sample := f.opt.MaxSamples
	if sample <= 0 || sample > n {
		sample = n
	}
	workers := f.opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*regressionTree, f.opt.Trees)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, sample)
			for k := range idx {
				idx[k] = rng.Intn(n)
			}
			b := &treeBuilder{x: rows, y: y, p: p, opt: f.opt, rng: rng}
			trees[i] = b.fit(idx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	f.trees = trees
	return nil
}

// Predict averages the tree outputs.
func (f *RandomForest) Predict(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

type treeNode struct {
	feature     int
	threshold   float64
	left, right int
	value       float64
	leaf        bool
}

type regressionTree struct {
	nodes []treeNode
}

func (t *regressionTree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.leaf {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

type treeBuilder struct {
	x     [][]float64
	y     []float64
	p     int
	opt   ForestOptions
	rng   *rand.Rand
	nodes []treeNode
}

func (b *treeBuilder) fit(idx []int) *regressionTree {
	b.grow(idx, 0)
	return &regressionTree{nodes: b.nodes}
}

// grow appends the subtree for idx and returns its node index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	id := len(b.nodes)
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	b.nodes = append(b.nodes, treeNode{leaf: true, value: mean})

	sse := sumSq - sum*sum/n
	if len(idx) < b.opt.MinSamplesSplit || len(idx) < 2*b.opt.MinSamplesLeaf ||
		(b.opt.MaxDepth > 0 && depth >= b.opt.MaxDepth) || sse <= 1e-12*n {
		return id
	}
	s, ok := b.bestSplit(idx, sse)
	if !ok {
		return id
	}
	var left, right []int
	for _, i := range idx {
		if b.x[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = treeNode{feature: s.feature, threshold: s.threshold, left: l, right: r, value: mean}
	return id
}

type split struct {
	feature   int
	threshold float64
	sse       float64
}

// bestSplit scans candidate features for the threshold with the lowest
// summed squared error of the two children, i.e. the largest variance
// reduction. It reports false when no split improves on the parent.
func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (split, bool) {
	features := b.candidateFeatures()
	minLeaf := b.opt.MinSamplesLeaf
	best := split{sse: parentSSE}
	found := false
	order := make([]int, len(idx))
	total, totalSq := 0.0, 0.0
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	for _, f := range features {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.x[order[a]][f] < b.x[order[c]][f] })
		lSum, lSq := 0.0, 0.0
		for k := 1; k < len(order); k++ {
			yv := b.y[order[k-1]]
			lSum += yv
			lSq += yv * yv
			if k < minLeaf || len(order)-k < minLeaf {
				continue
			}
			lo, hi := b.x[order[k-1]][f], b.x[order[k]][f]
			if lo >= hi {
				continue
			}
			nl, nr := float64(k), float64(len(order)-k)
			rSum, rSq := total-lSum, totalSq-lSq
			sse := (lSq - lSum*lSum/nl) + (rSq - rSum*rSum/nr)
			if sse < best.sse-1e-12 {
				thr := lo + (hi-lo)/2
				if thr >= hi {
					thr = lo
				}
				best = split{feature: f, threshold: thr, sse: sse}
				found = true
			}
		}
	}
	return best, found
}

func (b *treeBuilder) candidateFeatures() []int {
	k := b.opt.MaxFeatures
	if k <= 0 || k >= b.p {
		all := make([]int, b.p)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(b.p)[:k]
}
