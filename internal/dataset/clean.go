package dataset

import (
	"math"
	"sort"
	"time"
)

// CleanStats reports what Clean changed.
type CleanStats struct {
	InputRows int
	// Imputed counts filled cells per column.
	Imputed map[string]int
	// Medians and Modes hold the fill value used per column.
	Medians map[string]float64
	Modes   map[string]string
	// AllMissing lists columns that had no value to impute from.
	AllMissing []string
	Duplicates int
	// InvalidTimestamps counts rows whose calendar fields do not form a
	// valid date; they keep a zero timestamp and sort first.
	InvalidTimestamps int
}

// TotalImputed sums the imputed cells across columns.
func (s CleanStats) TotalImputed() int {
	n := 0
	for _, v := range s.Imputed {
		n += v
	}
	return n
}

// ImputedColumns lists the columns that received fill values, sorted by name.
func (s CleanStats) ImputedColumns() []string {
	out := make([]string, 0, len(s.Imputed))
	for name := range s.Imputed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Clean returns a cleaned copy of t: numeric gaps filled with the column
// median, categorical gaps with the column mode, exact duplicates dropped
// (first occurrence kept), a datetime column derived from year, month, day
// and hour, and rows stably sorted by that timestamp. t is not modified.
func Clean(t *Table) (*Table, CleanStats) {
	stats := CleanStats{
		InputRows: t.Rows(),
		Imputed:   map[string]int{},
		Medians:   map[string]float64{},
		Modes:     map[string]string{},
	}
	out := t.Clone()

	for _, c := range out.cols {
		switch {
		case c.Numeric():
			imputeMedian(c, &stats)
		case c.Kind == KindString:
			imputeMode(c, &stats)
		}
	}

	out = dropDuplicates(out, &stats)

	times := deriveTimestamps(out, &stats)
	out.setColumn(&Column{Name: ColDatetime, Kind: KindTime, Times: times})

	order := make([]int, out.Rows())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return times[order[a]].Before(times[order[b]])
	})
	if !isIdentity(order) {
		out = out.Select(order)
	}
	return out, stats
}

func imputeMedian(c *Column, stats *CleanStats) {
	var present []float64
	missing := 0
	for _, v := range c.Floats {
		if math.IsNaN(v) {
			missing++
			continue
		}
		present = append(present, v)
	}
	if missing == 0 {
		return
	}
	if len(present) == 0 {
		stats.AllMissing = append(stats.AllMissing, c.Name)
		return
	}
	sort.Float64s(present)
	med := Median(present)
	for i, v := range c.Floats {
		if math.IsNaN(v) {
			c.Floats[i] = med
		}
	}
	stats.Imputed[c.Name] = missing
	stats.Medians[c.Name] = med
}

func imputeMode(c *Column, stats *CleanStats) {
	counts := map[string]int{}
	missing := 0
	for _, v := range c.Strings {
		if v == "" {
			missing++
			continue
		}
		counts[v]++
	}
	if missing == 0 {
		return
	}
	mode, ok := Mode(counts)
	if !ok {
		stats.AllMissing = append(stats.AllMissing, c.Name)
		return
	}
	for i, v := range c.Strings {
		if v == "" {
			c.Strings[i] = mode
		}
	}
	stats.Imputed[c.Name] = missing
	stats.Modes[c.Name] = mode
}

// Median returns the median of sorted values, averaging the middle pair
// for even lengths.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Mode returns the most frequent value. Ties resolve to the lexically
// smallest value so the result does not depend on map order.
func Mode(counts map[string]int) (string, bool) {
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, bestN > 0
}

func dropDuplicates(t *Table, stats *CleanStats) *Table {
	seen := make(map[string]struct{}, t.Rows())
	keep := make([]int, 0, t.Rows())
	for i := 0; i < t.Rows(); i++ {
		k := t.rowKey(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	stats.Duplicates = t.Rows() - len(keep)
	if stats.Duplicates == 0 {
		return t
	}
	return t.Select(keep)
}

func deriveTimestamps(t *Table, stats *CleanStats) []time.Time {
	years, months := t.Floats(ColYear), t.Floats(ColMonth)
	days, hours := t.Floats(ColDay), t.Floats(ColHour)
	out := make([]time.Time, t.Rows())
	if years == nil || months == nil || days == nil || hours == nil {
		stats.InvalidTimestamps = t.Rows()
		return out
	}
	for i := range out {
		ts, ok := Timestamp(years[i], months[i], days[i], hours[i])
		if !ok {
			stats.InvalidTimestamps++
			continue
		}
		out[i] = ts
	}
	return out
}

// Timestamp builds a UTC hour timestamp, rejecting fields time.Date would
// normalise (e.g. February 30th).
func Timestamp(year, month, day, hour float64) (time.Time, bool) {
	for _, v := range []float64{year, month, day, hour} {
		if math.IsNaN(v) || v != math.Trunc(v) {
			return time.Time{}, false
		}
	}
	y, m, d, h := int(year), int(month), int(day), int(hour)
	if m < 1 || m > 12 || d < 1 || d > 31 || h < 0 || h > 23 {
		return time.Time{}, false
	}
	ts := time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC)
	if ts.Year() != y || int(ts.Month()) != m || ts.Day() != d {
		return time.Time{}, false
	}
	return ts, true
}

func isIdentity(order []int) bool {
	for i, v := range order {
		if i != v {
			return false
		}
	}
	return true
}
