package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/airq-cli/internal/dataset"
	"github.com/KaramelBytes/airq-cli/internal/model"
	"github.com/olekukonko/tablewriter"
)

// OverviewKind selects a data overview report.
type OverviewKind int

const (
	OverviewHead OverviewKind = iota + 1
	OverviewShape
	OverviewDataTypes
	OverviewSummary
	OverviewMissing
	OverviewStatistics
)

var overviewLabels = []struct {
	kind  OverviewKind
	label string
}{
	{OverviewHead, "Head"},
	{OverviewShape, "Shape"},
	{OverviewDataTypes, "Data Types"},
	{OverviewSummary, "Summary"},
	{OverviewMissing, "Missing"},
	{OverviewStatistics, "Statistics"},
}

func (k OverviewKind) String() string {
	for _, l := range overviewLabels {
		if l.kind == k {
			return l.label
		}
	}
	return fmt.Sprintf("OverviewKind(%d)", int(k))
}

// OverviewKinds lists the report labels in menu order.
func OverviewKinds() []string {
	out := make([]string, len(overviewLabels))
	for i, l := range overviewLabels {
		out[i] = l.label
	}
	return out
}

// ParseOverview resolves a report label. Matching ignores case and treats
// '-', '_' and repeated spaces alike, so "data-types" selects "Data Types".
func ParseOverview(s string) (OverviewKind, error) {
	key := normalizeLabel(s)
	for _, l := range overviewLabels {
		if normalizeLabel(l.label) == key {
			return l.kind, nil
		}
	}
	return 0, &model.UnsupportedOptionError{Option: "overview option", Value: s, Supported: OverviewKinds()}
}

func normalizeLabel(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// OverviewOptions tunes overview rendering.
type OverviewOptions struct {
	// HeadRows is the number of rows the Head report shows.
	HeadRows int
}

// Overview renders report kind over t as text.
func Overview(t *dataset.Table, kind OverviewKind, opt OverviewOptions) (string, error) {
	switch kind {
	case OverviewHead:
		n := opt.HeadRows
		if n <= 0 {
			n = 5
		}
		return Head(t, n), nil
	case OverviewShape:
		return Shape(t), nil
	case OverviewDataTypes:
		return DataTypes(t), nil
	case OverviewSummary:
		return Summary(t)
	case OverviewMissing:
		return MissingCounts(t), nil
	case OverviewStatistics:
		return Statistics(t)
	default:
		return "", &model.UnsupportedOptionError{Option: "overview option", Value: kind.String(), Supported: OverviewKinds()}
	}
}

// Shape reports the table dimensions.
func Shape(t *dataset.Table) string {
	return fmt.Sprintf("Rows: %d, Columns: %d", t.Rows(), t.Cols())
}

// Head renders the first n rows as a markdown table with a row index.
func Head(t *dataset.Table, n int) string {
	if n > t.Rows() {
		n = t.Rows()
	}
	header := append([]string{""}, t.Names()...)
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = append([]string{strconv.Itoa(i)}, t.Row(i)...)
	}
	return markdownTable(header, rows)
}

// DataTypes lists each column with its pandas-style dtype.
func DataTypes(t *dataset.Table) string {
	width := labelWidth(t.Names())
	var b strings.Builder
	for _, c := range t.Columns() {
		fmt.Fprintf(&b, "%-*s %s\n", width, c.Name, c.DType())
	}
	return strings.TrimRight(b.String(), "\n")
}

// MissingCounts lists the missing value count per column.
func MissingCounts(t *dataset.Table) string {
	width := labelWidth(t.Names())
	var b strings.Builder
	for _, c := range t.Columns() {
		fmt.Fprintf(&b, "%-*s %d\n", width, c.Name, c.Missing())
	}
	return strings.TrimRight(b.String(), "\n")
}

// Summary renders count, mean, std, min, quartiles and max per numeric column.
func Summary(t *dataset.Table) (string, error) {
	stats, err := Describe(t)
	if err != nil {
		return "", err
	}
	header := []string{""}
	for _, s := range stats {
		header = append(header, s.Name)
	}
	lines := []struct {
		label string
		get   func(ColumnStats) float64
	}{
		{"count", func(s ColumnStats) float64 { return float64(s.Count) }},
		{"mean", func(s ColumnStats) float64 { return s.Mean }},
		{"std", func(s ColumnStats) float64 { return s.Std }},
		{"min", func(s ColumnStats) float64 { return s.Min }},
		{"25%", func(s ColumnStats) float64 { return s.Q25 }},
		{"50%", func(s ColumnStats) float64 { return s.Median }},
		{"75%", func(s ColumnStats) float64 { return s.Q75 }},
		{"max", func(s ColumnStats) float64 { return s.Max }},
	}
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		row := []string{l.label}
		for _, s := range stats {
			row = append(row, formatFloat(l.get(s), 6))
		}
		rows = append(rows, row)
	}
	return markdownTable(header, rows), nil
}

// Statistics renders mean, median, extremes, spread, shape and robust
// outlier counts for the pollutant and weather columns, rounded to 2 decimals.
func Statistics(t *dataset.Table) (string, error) {
	stats, err := Describe(t, dataset.PollutantWeatherColumns...)
	if err != nil {
		return "", err
	}
	corr, err := Correlation(t, dataset.PollutantWeatherColumns)
	if err != nil {
		return "", err
	}
	header := []string{"Column", "Mean", "Median", "Min", "Max", "Std Dev", "Skewness", "Kurtosis", "Outliers", "Max |z|"}
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Name,
			formatFloat(s.Mean, 2),
			formatFloat(s.Median, 2),
			formatFloat(s.Min, 2),
			formatFloat(s.Max, 2),
			formatFloat(s.Std, 2),
			formatFloat(s.Skew, 2),
			formatFloat(s.Kurtosis, 2),
			strconv.Itoa(s.OutliersCount),
			formatFloat(s.OutliersMaxAbsZ, 2),
		})
	}
	var b strings.Builder
	b.WriteString(markdownTable(header, rows))
	if pairs := corr.TopPairs(TopCorrelationPairs); len(pairs) > 0 {
		b.WriteString("\n\nStrongest correlations:\n")
		for _, p := range pairs {
			fmt.Fprintf(&b, "  %s ~ %s: %s\n", p.A, p.B, formatFloat(p.R, 3))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// TopCorrelationPairs is how many column pairs the statistics report and
// the exported workbook list under the strongest correlations.
const TopCorrelationPairs = 5

// markdownTable renders a pipe table with tablewriter.
func markdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	tw := tablewriter.NewWriter(&b)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tw.SetCenterSeparator("|")
	tw.AppendBulk(rows)
	tw.Render()
	return strings.TrimRight(b.String(), "\n")
}

func labelWidth(names []string) int {
	w := 0
	for _, n := range names {
		if len(n) > w {
			w = len(n)
		}
	}
	return w
}

func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
