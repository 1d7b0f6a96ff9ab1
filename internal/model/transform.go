package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minScale is the standard deviation below which a column is only centered.
const minScale = 1e-12

// ColumnTransformer standardizes the numeric predictors and one-hot
// encodes the wind direction. Its state is fixed at fit time.
type ColumnTransformer struct {
	Means      []float64
	Scales     []float64
	Categories []string
	catIndex   map[string]int
}

// FitTransformer learns means, population standard deviations and the
// observed wind directions from ts. Columns with (near) zero variance get
// a scale of 1 so they are centered but not divided.
func FitTransformer(ts *TrainingSet) *ColumnTransformer {
	p := len(NumericFeatures)
	ct := &ColumnTransformer{Means: make([]float64, p), Scales: make([]float64, p)}
	col := make([]float64, ts.Len())
	for j := 0; j < p; j++ {
		for i, row := range ts.Numeric {
			col[i] = row[j]
		}
		mean, variance := stat.MeanVariance(col, nil)
		n := float64(len(col))
		scale := 1.0
		if n > 1 {
			if sd := math.Sqrt(variance * (n - 1) / n); sd >= minScale {
				scale = sd
			}
		}
		ct.Means[j] = mean
		ct.Scales[j] = scale
	}
	seen := map[string]bool{}
	for _, c := range ts.Categories {
		if !seen[c] {
			seen[c] = true
			ct.Categories = append(ct.Categories, c)
		}
	}
	sort.Strings(ct.Categories)
	ct.index()
	return ct
}

func (ct *ColumnTransformer) index() {
	ct.catIndex = make(map[string]int, len(ct.Categories))
	for i, c := range ct.Categories {
		ct.catIndex[c] = i
	}
}

func (ct *ColumnTransformer) lookup(category string) (int, bool) {
	if ct.catIndex != nil {
		k, ok := ct.catIndex[category]
		return k, ok
	}
	for k, c := range ct.Categories {
		if c == category {
			return k, true
		}
	}
	return 0, false
}

// Width is the number of encoded features.
func (ct *ColumnTransformer) Width() int { return len(ct.Means) + len(ct.Categories) }

// FeatureNames lists encoded feature names in column order.
func (ct *ColumnTransformer) FeatureNames() []string {
	out := append([]string(nil), NumericFeatures...)
	for _, c := range ct.Categories {
		out = append(out, CategoricalFeature+"_"+c)
	}
	return out
}

// TransformInto encodes one row into dst, which must have length Width().
// An unseen category leaves its one-hot block all zero.
func (ct *ColumnTransformer) TransformInto(dst, numeric []float64, category string) {
	for j, v := range numeric {
		dst[j] = (v - ct.Means[j]) / ct.Scales[j]
	}
	off := len(ct.Means)
	for k := off; k < len(dst); k++ {
		dst[k] = 0
	}
	if k, ok := ct.lookup(category); ok {
		dst[off+k] = 1
	}
}

// Transform encodes one row.
func (ct *ColumnTransformer) Transform(numeric []float64, category string) []float64 {
	dst := make([]float64, ct.Width())
	ct.TransformInto(dst, numeric, category)
	return dst
}

// Design encodes every row of ts into a dense design matrix.
func (ct *ColumnTransformer) Design(ts *TrainingSet) *mat.Dense {
	n, w := ts.Len(), ct.Width()
	data := make([]float64, n*w)
	for i := 0; i < n; i++ {
		ct.TransformInto(data[i*w:(i+1)*w], ts.Numeric[i], ts.Categories[i])
	}
	return mat.NewDense(n, w, data)
}
