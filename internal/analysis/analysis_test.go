package analysis

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/airq-cli/internal/dataset"
	"github.com/KaramelBytes/airq-cli/internal/model"
	"github.com/xuri/excelize/v2"
)

const header = "No,year,month,day,hour,PM2.5,PM10,SO2,NO2,CO,O3,TEMP,PRES,DEWP,RAIN,wd,WSPM,station"

var directions = []string{"N", "NE", "E", "S"}

// fixtureTable loads and cleans 48 synthetic station-hours spanning two months.
func fixtureTable(t *testing.T) *dataset.Table {
	t.Helper()
	var b strings.Builder
	b.WriteString(header + "\n")
	for i := 0; i < 48; i++ {
		month := 3 + i/24
		day := 1 + (i%24)/12
		hour := i % 12
		pm := 20 + 3*float64(i) + float64(i%5)
		fmt.Fprintf(&b, "%d,2013,%d,%d,%d,%g,%g,%d,%d,%d,%d,%g,%g,%g,%g,%s,%g,Aotizhongxin\n",
			i+1, month, day, hour, pm, pm*1.4+5, 4+i%7, 10+i%9, 300+10*(i%4), 60+i%11,
			float64(i%10)-2, 1010+float64(i%6), float64(i%8)-15, float64(i%3)/10, directions[i%4], 0.5+float64(i%6)*0.7)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "PRSA_Data_Aotizhongxin.csv"), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, err := dataset.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	clean, _ := dataset.Clean(raw)
	return clean
}

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestParseOverview(t *testing.T) {
	cases := map[string]OverviewKind{
		"Head":       OverviewHead,
		"shape":      OverviewShape,
		"Data Types": OverviewDataTypes,
		"data-types": OverviewDataTypes,
		"SUMMARY":    OverviewSummary,
		"missing":    OverviewMissing,
		"statistics": OverviewStatistics,
	}
	for in, want := range cases {
		got, err := ParseOverview(in)
		if err != nil || got != want {
			t.Errorf("ParseOverview(%q) = %v, %v", in, got, err)
		}
	}
	_, err := ParseOverview("Tail")
	var uoe *model.UnsupportedOptionError
	if !errors.As(err, &uoe) {
		t.Fatalf("expected UnsupportedOptionError, got %v", err)
	}
}

func TestShapeReportsExactDimensions(t *testing.T) {
	tbl := fixtureTable(t)
	out, err := Overview(tbl, OverviewShape, OverviewOptions{})
	if err != nil {
		t.Fatal(err)
	}
	// 18 input columns plus the derived datetime column
	if out != "Rows: 48, Columns: 19" {
		t.Fatalf("shape = %q", out)
	}
	if got := Shape(dataset.EmptyTable()); got != "Rows: 0, Columns: 16" {
		t.Fatalf("empty shape = %q", got)
	}
}

func TestHeadRendersMarkdownRows(t *testing.T) {
	tbl := fixtureTable(t)
	out, err := Overview(tbl, OverviewHead, OverviewOptions{HeadRows: 3})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, separator and 3 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "PM2.5") || !strings.Contains(lines[0], "datetime") {
		t.Fatalf("header line missing columns: %s", lines[0])
	}
	if !strings.Contains(lines[2], "2013-03-01 00:00:00") {
		t.Fatalf("first row not the earliest timestamp: %s", lines[2])
	}
}

func TestDataTypesAndMissing(t *testing.T) {
	tbl := fixtureTable(t)
	dt := DataTypes(tbl)
	for _, want := range []string{"PM2.5", "float64", "wd", "object", "year", "int64", "datetime64[ns]"} {
		if !strings.Contains(dt, want) {
			t.Errorf("data types missing %q:\n%s", want, dt)
		}
	}
	miss := MissingCounts(tbl)
	if strings.Count(miss, "\n")+1 != tbl.Cols() {
		t.Fatalf("missing report lines != columns:\n%s", miss)
	}
	for _, line := range strings.Split(miss, "\n") {
		if !strings.HasSuffix(line, " 0") {
			t.Fatalf("cleaned table reports missing values: %q", line)
		}
	}
}

func TestDescribeMatchesHandComputation(t *testing.T) {
	c := &dataset.Column{Name: "x", Kind: dataset.KindFloat, Floats: []float64{4, 1, math.NaN(), 3, 2}}
	tbl, err := dataset.NewTable(c)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := Describe(tbl)
	if err != nil {
		t.Fatal(err)
	}
	s := stats[0]
	if s.Count != 4 || s.Missing != 1 {
		t.Fatalf("count/missing = %d/%d", s.Count, s.Missing)
	}
	if !almostEqual(s.Mean, 2.5, 1e-12) || !almostEqual(s.Median, 2.5, 1e-12) {
		t.Fatalf("mean/median = %v/%v", s.Mean, s.Median)
	}
	if !almostEqual(s.Q25, 1.75, 1e-12) || !almostEqual(s.Q75, 3.25, 1e-12) {
		t.Fatalf("quartiles = %v/%v", s.Q25, s.Q75)
	}
	if !almostEqual(s.Std, math.Sqrt(5.0/3.0), 1e-12) {
		t.Fatalf("std = %v", s.Std)
	}
	if !almostEqual(s.Skew, 0, 1e-12) {
		t.Fatalf("symmetric data skew = %v", s.Skew)
	}
}

func TestAggregateReportsRejectEmptyTable(t *testing.T) {
	empty := dataset.EmptyTable()
	for _, kind := range []OverviewKind{OverviewSummary, OverviewStatistics} {
		if _, err := Overview(empty, kind, OverviewOptions{}); !errors.Is(err, dataset.ErrEmptyTable) {
			t.Errorf("%s: expected ErrEmptyTable, got %v", kind, err)
		}
	}
	if _, err := Chart(empty, ChartDistribution, ChartOptions{}); !errors.Is(err, dataset.ErrEmptyTable) {
		t.Errorf("chart: expected ErrEmptyTable, got %v", err)
	}
}

func TestStatisticsAndSummary(t *testing.T) {
	tbl := fixtureTable(t)
	st, err := Statistics(tbl)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Skewness", "Kurtosis", "PM2.5", "WSPM", "Max |z|", "Strongest correlations", "PM2.5 ~ PM10: 1.000"} {
		if !strings.Contains(st, want) {
			t.Errorf("statistics missing %q", want)
		}
	}
	sum, err := Summary(tbl)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sum, "48.000000") || !strings.Contains(sum, "25%") {
		t.Fatalf("summary missing count row:\n%s", sum)
	}
}

func TestCorrelationMatrix(t *testing.T) {
	tbl := fixtureTable(t)
	m, err := Correlation(tbl, dataset.PollutantWeatherColumns)
	if err != nil {
		t.Fatal(err)
	}
	n := len(m.Columns)
	if n != 11 {
		t.Fatalf("columns = %d", n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if a, b := m.Values[i][j], m.Values[j][i]; a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				t.Fatalf("asymmetric at %d,%d", i, j)
			}
		}
	}
	// PM10 is an affine function of PM2.5 in the fixture
	if !almostEqual(m.Values[0][1], 1, 1e-9) {
		t.Fatalf("PM2.5~PM10 r = %v", m.Values[0][1])
	}
	if top := m.TopPairs(1); len(top) != 1 || top[0].A != dataset.ColPM25 || top[0].B != dataset.ColPM10 {
		t.Fatalf("top pair = %+v", top)
	}
}

func TestParseChart(t *testing.T) {
	for _, k := range ChartKinds() {
		got, err := ParseChart(k.String())
		if err != nil || got != k {
			t.Errorf("ParseChart(%q) = %v, %v", k, got, err)
		}
		got, err = ParseChart(k.Slug())
		if err != nil || got != k {
			t.Errorf("ParseChart(%q) = %v, %v", k.Slug(), got, err)
		}
	}
	if ChartDistribution.Slug() != "pm2-5-distribution" {
		t.Fatalf("slug = %q", ChartDistribution.Slug())
	}
	_, err := ParseChart("Pie Chart")
	var uoe *model.UnsupportedOptionError
	if !errors.As(err, &uoe) || uoe.Option != "chart" {
		t.Fatalf("expected chart UnsupportedOptionError, got %v", err)
	}
}

func TestEveryChartRendersPNG(t *testing.T) {
	tbl := fixtureTable(t)
	for _, k := range ChartKinds() {
		t.Run(k.Slug(), func(t *testing.T) {
			fig, err := Chart(tbl, k, ChartOptions{MaxScatterPoints: 20})
			if err != nil {
				t.Fatalf("chart: %v", err)
			}
			var buf bytes.Buffer
			if _, err := fig.WriteTo(&buf); err != nil {
				t.Fatalf("render: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
				t.Fatal("output is not a PNG")
			}
		})
	}
}

func TestMonthlyMeans(t *testing.T) {
	tbl := fixtureTable(t)
	months, means := MonthlyMeans(tbl.Times(), tbl.Floats(dataset.ColPM25))
	if len(months) != 2 || months[0].Month() != 3 || months[1].Month() != 4 {
		t.Fatalf("months = %v", months)
	}
	if means[1] <= means[0] {
		t.Fatalf("fixture trend should rise: %v", means)
	}
	byMonth := MonthOfYearMeans(tbl.Floats(dataset.ColMonth), tbl.Floats(dataset.ColPM25))
	if !almostEqual(byMonth[2], means[0], 1e-9) || !math.IsNaN(byMonth[0]) {
		t.Fatalf("month-of-year means = %v", byMonth)
	}
}

func TestExportWorkbook(t *testing.T) {
	tbl := fixtureTable(t)
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	metrics := []model.Metrics{{Model: "Linear Regression", Rows: 48, RMSE: 1.5, MAE: 1.1, R2: 0.9, InSample: true}}
	if err := ExportWorkbook(path, tbl, metrics); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetStatistics)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 12 || rows[1][0] != dataset.ColPM25 {
		t.Fatalf("statistics sheet rows = %d, first = %v", len(rows), rows[1])
	}
	if last := rows[0][len(rows[0])-1]; last != "Max |z|" {
		t.Fatalf("statistics header ends with %q", last)
	}
	crows, err := f.GetRows(SheetCorrelations)
	if err != nil {
		t.Fatal(err)
	}
	top := -1
	for i, r := range crows {
		if len(r) > 0 && r[0] == "Strongest correlations" {
			top = i
		}
	}
	if top < 12 || top+1 >= len(crows) || crows[top+1][0] != dataset.ColPM25 || crows[top+1][1] != dataset.ColPM10 {
		t.Fatalf("correlations sheet missing strongest pairs: %v", crows)
	}
	mrows, err := f.GetRows(SheetMetrics)
	if err != nil {
		t.Fatal(err)
	}
	if len(mrows) != 2 || mrows[1][1] != "in-sample (optimistic)" {
		t.Fatalf("metrics sheet = %v", mrows)
	}
}
