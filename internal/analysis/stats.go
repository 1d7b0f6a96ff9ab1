package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/airq-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// DefaultOutlierThreshold is the robust |z| above which a value counts as an outlier.
const DefaultOutlierThreshold = 3.5

// ColumnStats captures descriptive statistics of one numeric column.
type ColumnStats struct {
	Name    string
	Count   int
	Missing int
	Mean    float64
	Std     float64
	Min     float64
	Q25     float64
	Median  float64
	Q75     float64
	Max     float64
	// Skew is the bias-corrected sample skewness.
	Skew float64
	// Kurtosis is the bias-corrected excess kurtosis.
	Kurtosis float64
	// Outliers (robust Z via MAD)
	OutliersCount   int
	OutliersMaxAbsZ float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Describe computes statistics for cols (all numeric columns when empty).
// Missing values are skipped. An empty table yields dataset.ErrEmptyTable.
func Describe(t *dataset.Table, cols ...string) ([]ColumnStats, error) {
	if t.Rows() == 0 {
		return nil, dataset.ErrEmptyTable
	}
	if len(cols) == 0 {
		cols = t.NumericNames()
	}
	out := make([]ColumnStats, 0, len(cols))
	for _, name := range cols {
		c, ok := t.Column(name)
		if !ok || !c.Numeric() {
			continue
		}
		out = append(out, describeColumn(c))
	}
	return out, nil
}

func describeColumn(c *dataset.Column) ColumnStats {
	vals := make([]float64, 0, len(c.Floats))
	for _, v := range c.Floats {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	cs := ColumnStats{Name: c.Name, Count: len(vals), Missing: len(c.Floats) - len(vals)}
	if len(vals) == 0 {
		nan := math.NaN()
		cs.Mean, cs.Std, cs.Min, cs.Q25, cs.Median, cs.Q75, cs.Max = nan, nan, nan, nan, nan, nan, nan
		cs.Skew, cs.Kurtosis = nan, nan
		return cs
	}
	sort.Float64s(vals)
	cs.Mean, cs.Std = stat.MeanStdDev(vals, nil)
	cs.Min = vals[0]
	cs.Max = vals[len(vals)-1]
	cs.Q25 = quantile(vals, 0.25)
	cs.Median = quantile(vals, 0.5)
	cs.Q75 = quantile(vals, 0.75)
	cs.Skew = math.NaN()
	cs.Kurtosis = math.NaN()
	if len(vals) > 2 && cs.Std > 0 {
		cs.Skew = stat.Skew(vals, nil)
	}
	if len(vals) > 3 && cs.Std > 0 {
		cs.Kurtosis = stat.ExKurtosis(vals, nil)
	}
	cs.OutliersCount, cs.OutliersMaxAbsZ = robustOutliers(vals, DefaultOutlierThreshold)
	return cs
}

// robustOutliers counts values whose modified z-score exceeds thr.
func robustOutliers(vals []float64, thr float64) (count int, maxAbsZ float64) {
	med, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range vals {
		z := 0.6745 * (v - med) / mad
		if z < 0 {
			z = -z
		}
		if z > thr {
			count++
		}
		if z > maxAbsZ {
			maxAbsZ = z
		}
	}
	return count, maxAbsZ
}

// Correlation computes pairwise Pearson correlations over rows where both
// columns are present.
func Correlation(t *dataset.Table, cols []string) (*CorrMatrix, error) {
	if t.Rows() == 0 {
		return nil, dataset.ErrEmptyTable
	}
	data := make([][]float64, 0, len(cols))
	names := make([]string, 0, len(cols))
	for _, name := range cols {
		if v := t.Floats(name); v != nil {
			data = append(data, v)
			names = append(names, name)
		}
	}
	m := &CorrMatrix{Columns: names, Values: make([][]float64, len(names))}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(names))
	}
	for i := range names {
		for j := i; j < len(names); j++ {
			r := pearson(data[i], data[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func pearson(a, b []float64) float64 {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// TopPairs lists the off-diagonal pairs sorted by |r|, strongest first.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.IsNaN(m.Values[i][j]) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai := math.Abs(pairs[i].R)
		aj := math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between closest ranks of sorted data.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// MonthlyMeans averages col by calendar month over timestamps, in time order.
func MonthlyMeans(times []time.Time, col []float64) (months []time.Time, means []float64) {
	type acc struct {
		sum float64
		n   int
	}
	buckets := map[time.Time]*acc{}
	for i, ts := range times {
		if ts.IsZero() || math.IsNaN(col[i]) {
			continue
		}
		key := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
			months = append(months, key)
		}
		a.sum += col[i]
		a.n++
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	means = make([]float64, len(months))
	for i, m := range months {
		means[i] = buckets[m].sum / float64(buckets[m].n)
	}
	return months, means
}

// MonthOfYearMeans averages col by month number 1..12; months without data are NaN.
func MonthOfYearMeans(month, col []float64) [12]float64 {
	var sum [12]float64
	var n [12]int
	for i, m := range month {
		if math.IsNaN(m) || math.IsNaN(col[i]) || m < 1 || m > 12 {
			continue
		}
		k := int(m) - 1
		sum[k] += col[i]
		n[k]++
	}
	var out [12]float64
	for k := range out {
		if n[k] == 0 {
			out[k] = math.NaN()
			continue
		}
		out[k] = sum[k] / float64(n[k])
	}
	return out
}
