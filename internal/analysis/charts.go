package analysis

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/airq-cli/internal/dataset"
	"github.com/KaramelBytes/airq-cli/internal/model"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ChartKind selects an exploratory chart.
type ChartKind int

const (
	ChartDistribution ChartKind = iota + 1
	ChartMonthlyTrend
	ChartTempScatter
	ChartWindBoxplot
	ChartCorrelation
	ChartMonthBars
	ChartPairplot
	ChartWindRegression
)

var chartLabels = []struct {
	kind  ChartKind
	label string
}{
	{ChartDistribution, "PM2.5 Distribution"},
	{ChartMonthlyTrend, "Monthly Trend"},
	{ChartTempScatter, "PM2.5 vs Temperature"},
	{ChartWindBoxplot, "Boxplot by Wind Direction"},
	{ChartCorrelation, "Correlation Heatmap"},
	{ChartMonthBars, "Average PM2.5 by Month"},
	{ChartPairplot, "Pairplot of Pollutants"},
	{ChartWindRegression, "WSPM vs PM2.5 Regression"},
}

func (k ChartKind) String() string {
	for _, l := range chartLabels {
		if l.kind == k {
			return l.label
		}
	}
	return fmt.Sprintf("ChartKind(%d)", int(k))
}

// Slug is a file-name friendly form of the label, e.g. "pm2-5-distribution".
func (k ChartKind) Slug() string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(k.String()) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ChartKinds lists every chart in menu order.
func ChartKinds() []ChartKind {
	out := make([]ChartKind, len(chartLabels))
	for i, l := range chartLabels {
		out[i] = l.kind
	}
	return out
}

// ChartLabels lists the chart labels in menu order.
func ChartLabels() []string {
	out := make([]string, len(chartLabels))
	for i, l := range chartLabels {
		out[i] = l.label
	}
	return out
}

// ParseChart resolves a chart label or its slug.
func ParseChart(s string) (ChartKind, error) {
	key := normalizeLabel(s)
	for _, l := range chartLabels {
		if normalizeLabel(l.label) == key || l.kind.Slug() == strings.TrimSpace(strings.ToLower(s)) {
			return l.kind, nil
		}
	}
	return 0, &model.UnsupportedOptionError{Option: "chart", Value: s, Supported: ChartLabels()}
}

// ChartOptions tunes chart construction.
type ChartOptions struct {
	// MaxScatterPoints caps points drawn by scatter layers; 0 draws all.
	MaxScatterPoints int
}

// pollutantPairs are the pairplot columns.
var pollutantPairs = []string{dataset.ColPM25, dataset.ColPM10, dataset.ColSO2, dataset.ColNO2, dataset.ColCO}

var (
	histColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	kdeColor     = color.RGBA{R: 13, G: 59, B: 102, A: 255}
	pointColor   = color.NRGBA{R: 31, G: 119, B: 180, A: 100}
	barColor     = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	fitLineColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Figure is one or more plots laid out on a grid.
type Figure struct {
	Kind   ChartKind
	Plots  [][]*plot.Plot
	Width  vg.Length
	Height vg.Length
}

// WriteTo renders the figure as PNG.
func (f *Figure) WriteTo(w io.Writer) (int64, error) {
	rows := len(f.Plots)
	if rows == 0 {
		return 0, fmt.Errorf("figure %s has no plots", f.Kind)
	}
	cols := len(f.Plots[0])
	img := vgimg.New(f.Width, f.Height)
	dc := draw.New(img)
	if rows == 1 && cols == 1 {
		f.Plots[0][0].Draw(dc)
	} else {
		tiles := draw.Tiles{
			Rows: rows, Cols: cols,
			PadX: vg.Millimeter * 2, PadY: vg.Millimeter * 2,
			PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
			PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
		}
		canvases := plot.Align(f.Plots, tiles, dc)
		for j := range f.Plots {
			for i, p := range f.Plots[j] {
				if p != nil {
					p.Draw(canvases[j][i])
				}
			}
		}
	}
	png := vgimg.PngCanvas{Canvas: img}
	return png.WriteTo(w)
}

func single(kind ChartKind, p *plot.Plot, w, h vg.Length) *Figure {
	return &Figure{Kind: kind, Plots: [][]*plot.Plot{{p}}, Width: w, Height: h}
}

// Chart builds chart kind from t.
func Chart(t *dataset.Table, kind ChartKind, opt ChartOptions) (*Figure, error) {
	if t.Rows() == 0 {
		return nil, dataset.ErrEmptyTable
	}
	switch kind {
	case ChartDistribution:
		return distributionChart(t)
	case ChartMonthlyTrend:
		return monthlyTrendChart(t)
	case ChartTempScatter:
		return tempScatterChart(t, opt)
	case ChartWindBoxplot:
		return windBoxplotChart(t)
	case ChartCorrelation:
		return correlationChart(t)
	case ChartMonthBars:
		return monthBarChart(t)
	case ChartPairplot:
		return pairplotChart(t, opt)
	case ChartWindRegression:
		return windRegressionChart(t, opt)
	default:
		return nil, &model.UnsupportedOptionError{Option: "chart", Value: kind.String(), Supported: ChartLabels()}
	}
}

func requireFloats(t *dataset.Table, name string) ([]float64, error) {
	v := t.Floats(name)
	if v == nil {
		return nil, fmt.Errorf("column %s not found", name)
	}
	return v, nil
}

func present(v []float64) plotter.Values {
	out := make(plotter.Values, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

func distributionChart(t *dataset.Table) (*Figure, error) {
	pm, err := requireFloats(t, dataset.ColPM25)
	if err != nil {
		return nil, err
	}
	vals := present(pm)
	if len(vals) == 0 {
		return nil, dataset.ErrEmptyTable
	}
	p := plot.New()
	p.Title.Text = "Distribution of PM2.5"
	p.X.Label.Text = "PM2.5 Concentration (µg/m³)"
	p.Y.Label.Text = "Frequency"

	const bins = 50
	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return nil, fmt.Errorf("histogram: %w", err)
	}
	h.FillColor = histColor
	h.LineStyle.Width = vg.Length(0)
	p.Add(h)

	lo, hi := floatsRange(vals)
	if hi > lo {
		binWidth := (hi - lo) / bins
		kde, err := kdeLine(vals, lo, hi, float64(len(vals))*binWidth)
		if err != nil {
			return nil, err
		}
		p.Add(kde)
	}
	return single(ChartDistribution, p, 10*vg.Inch, 6*vg.Inch), nil
}

func monthlyTrendChart(t *dataset.Table) (*Figure, error) {
	times := t.Times()
	if times == nil {
		return nil, fmt.Errorf("column %s not found; clean the table first", dataset.ColDatetime)
	}
	pm, err := requireFloats(t, dataset.ColPM25)
	if err != nil {
		return nil, err
	}
	months, means := MonthlyMeans(times, pm)
	if len(months) == 0 {
		return nil, dataset.ErrEmptyTable
	}
	pts := make(plotter.XYs, len(months))
	for i, m := range months {
		pts[i].X = float64(m.Unix())
		pts[i].Y = means[i]
	}
	p := plot.New()
	p.Title.Text = "Monthly Average PM2.5 Concentration Over Time"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "PM2.5 (µg/m³)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("trend line: %w", err)
	}
	line.Color = histColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	return single(ChartMonthlyTrend, p, 14*vg.Inch, 5*vg.Inch), nil
}

func tempScatterChart(t *dataset.Table, opt ChartOptions) (*Figure, error) {
	pts, err := pairedPoints(t, dataset.ColTemp, dataset.ColPM25, opt.MaxScatterPoints)
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = "Scatterplot: PM2.5 vs Temperature"
	p.X.Label.Text = "Temperature (°C)"
	p.Y.Label.Text = "PM2.5 (µg/m³)"
	s, err := scatterLayer(pts)
	if err != nil {
		return nil, err
	}
	p.Add(s)
	return single(ChartTempScatter, p, 10*vg.Inch, 6*vg.Inch), nil
}

func windBoxplotChart(t *dataset.Table) (*Figure, error) {
	pm, err := requireFloats(t, dataset.ColPM25)
	if err != nil {
		return nil, err
	}
	wd := t.Strings(dataset.ColWD)
	if wd == nil {
		return nil, fmt.Errorf("column %s not found", dataset.ColWD)
	}
	groups := map[string]plotter.Values{}
	for i, d := range wd {
		if d == "" || math.IsNaN(pm[i]) {
			continue
		}
		groups[d] = append(groups[d], pm[i])
	}
	if len(groups) == 0 {
		return nil, dataset.ErrEmptyTable
	}
	cats := make([]string, 0, len(groups))
	for c := range groups {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	p := plot.New()
	p.Title.Text = "Boxplot of PM2.5 by Wind Direction"
	p.X.Label.Text = "wd"
	p.Y.Label.Text = "PM2.5"
	for i, c := range cats {
		b, err := plotter.NewBoxPlot(vg.Points(18), float64(i), groups[c])
		if err != nil {
			return nil, fmt.Errorf("boxplot %s: %w", c, err)
		}
		b.FillColor = barColor
		p.Add(b)
	}
	p.NominalX(cats...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return single(ChartWindBoxplot, p, 10*vg.Inch, 6*vg.Inch), nil
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ with the first
// column at the top, as a matrix is read.
type corrGrid struct{ m *CorrMatrix }

func (g corrGrid) Dims() (c, r int) { n := len(g.m.Columns); return n, n }
func (g corrGrid) Z(c, r int) float64 {
	n := len(g.m.Columns)
	return g.m.Values[n-1-r][c]
}
func (g corrGrid) X(c int) float64 { return float64(c) }
func (g corrGrid) Y(r int) float64 { return float64(r) }

func correlationChart(t *dataset.Table) (*Figure, error) {
	m, err := Correlation(t, dataset.PollutantWeatherColumns)
	if err != nil {
		return nil, err
	}
	n := len(m.Columns)
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(corrGrid{m}, cm.Palette(255))
	hm.Min, hm.Max = -1, 1

	p := plot.New()
	p.Title.Text = "Correlation Heatmap"
	p.Add(hm)

	var labels plotter.XYLabels
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			labels.Labels = append(labels.Labels, formatFloat(m.Values[n-1-r][c], 2))
		}
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(l)

	yNames := make([]string, n)
	for r := range yNames {
		yNames[r] = m.Columns[n-1-r]
	}
	p.NominalX(m.Columns...)
	p.NominalY(yNames...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return single(ChartCorrelation, p, 10*vg.Inch, 8*vg.Inch), nil
}

func monthBarChart(t *dataset.Table) (*Figure, error) {
	pm, err := requireFloats(t, dataset.ColPM25)
	if err != nil {
		return nil, err
	}
	month, err := requireFloats(t, dataset.ColMonth)
	if err != nil {
		return nil, err
	}
	means := MonthOfYearMeans(month, pm)
	vals := make(plotter.Values, 12)
	names := make([]string, 12)
	for k, v := range means {
		if !math.IsNaN(v) {
			vals[k] = v
		}
		names[k] = strconv.Itoa(k + 1)
	}
	p := plot.New()
	p.Title.Text = "Average PM2.5 by Month"
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "PM2.5 (µg/m³)"
	bars, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	return single(ChartMonthBars, p, 10*vg.Inch, 6*vg.Inch), nil
}

func pairplotChart(t *dataset.Table, opt ChartOptions) (*Figure, error) {
	data := make([][]float64, len(pollutantPairs))
	for i, name := range pollutantPairs {
		v, err := requireFloats(t, name)
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	// rows complete across all five columns
	var keep []int
	for r := 0; r < t.Rows(); r++ {
		ok := true
		for _, col := range data {
			if math.IsNaN(col[r]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, r)
		}
	}
	if len(keep) == 0 {
		return nil, dataset.ErrEmptyTable
	}
	sampled := sampleIndices(keep, opt.MaxScatterPoints)

	n := len(pollutantPairs)
	plots := make([][]*plot.Plot, n)
	for row := 0; row < n; row++ {
		plots[row] = make([]*plot.Plot, n)
		for col := 0; col < n; col++ {
			p := plot.New()
			if row == n-1 {
				p.X.Label.Text = pollutantPairs[col]
			}
			if col == 0 {
				p.Y.Label.Text = pollutantPairs[row]
			}
			if row == col {
				vals := make([]float64, len(keep))
				for k, r := range keep {
					vals[k] = data[col][r]
				}
				lo, hi := floatsRange(vals)
				if hi > lo {
					kde, err := kdeLine(vals, lo, hi, 1)
					if err != nil {
						return nil, err
					}
					p.Add(kde)
				}
			} else {
				pts := make(plotter.XYs, len(sampled))
				for k, r := range sampled {
					pts[k].X = data[col][r]
					pts[k].Y = data[row][r]
				}
				s, err := scatterLayer(pts)
				if err != nil {
					return nil, err
				}
				s.GlyphStyle.Radius = vg.Points(1)
				p.Add(s)
			}
			plots[row][col] = p
		}
	}
	plots[0][0].Title.Text = "Pairplot of Pollutants"
	return &Figure{Kind: ChartPairplot, Plots: plots, Width: 12 * vg.Inch, Height: 12 * vg.Inch}, nil
}

func windRegressionChart(t *dataset.Table, opt ChartOptions) (*Figure, error) {
	all, err := pairedPoints(t, dataset.ColWSPM, dataset.ColPM25, 0)
	if err != nil {
		return nil, err
	}
	xs := make([]float64, len(all))
	ys := make([]float64, len(all))
	for i, pt := range all {
		xs[i], ys[i] = pt.X, pt.Y
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	p := plot.New()
	p.Title.Text = "PM2.5 vs Wind Speed with Regression Line"
	p.X.Label.Text = "WSPM"
	p.Y.Label.Text = "PM2.5"
	s, err := scatterLayer(samplePoints(all, opt.MaxScatterPoints))
	if err != nil {
		return nil, err
	}
	p.Add(s)
	fit := plotter.NewFunction(func(x float64) float64 { return alpha + beta*x })
	fit.Color = fitLineColor
	fit.Width = vg.Points(2)
	lo, hi := floatsRange(xs)
	fit.XMin, fit.XMax = lo, hi
	p.Add(fit)
	p.Legend.Add(fmt.Sprintf("PM2.5 = %.2f %+.2f·WSPM", alpha, beta), fit)
	return single(ChartWindRegression, p, 12*vg.Inch, 8*vg.Inch), nil
}

// pairedPoints collects (x, y) where both are present, sampled to max.
func pairedPoints(t *dataset.Table, xName, yName string, max int) (plotter.XYs, error) {
	x, err := requireFloats(t, xName)
	if err != nil {
		return nil, err
	}
	y, err := requireFloats(t, yName)
	if err != nil {
		return nil, err
	}
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	if len(pts) == 0 {
		return nil, dataset.ErrEmptyTable
	}
	return samplePoints(pts, max), nil
}

func scatterLayer(pts plotter.XYs) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	s.GlyphStyle.Color = pointColor
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)
	return s, nil
}

// samplePoints keeps every k-th point so at most max remain.
func samplePoints(pts plotter.XYs, max int) plotter.XYs {
	if max <= 0 || len(pts) <= max {
		return pts
	}
	out := make(plotter.XYs, 0, max)
	step := float64(len(pts)) / float64(max)
	for i := 0; i < max; i++ {
		out = append(out, pts[int(float64(i)*step)])
	}
	return out
}

func sampleIndices(idx []int, max int) []int {
	if max <= 0 || len(idx) <= max {
		return idx
	}
	out := make([]int, 0, max)
	step := float64(len(idx)) / float64(max)
	for i := 0; i < max; i++ {
		out = append(out, idx[int(float64(i)*step)])
	}
	return out
}

// kdeSamples bounds the points entering the density estimate.
const kdeSamples = 5000

// kdeLine draws a Gaussian kernel density estimate with Scott's bandwidth,
// multiplied by scale (n·binWidth overlays it on a count histogram).
func kdeLine(vals []float64, lo, hi, scale float64) (*plotter.Line, error) {
	sample := vals
	if len(sample) > kdeSamples {
		sample = make([]float64, kdeSamples)
		step := float64(len(vals)) / kdeSamples
		for i := range sample {
			sample[i] = vals[int(float64(i)*step)]
		}
	}
	sd := stat.StdDev(sample, nil)
	if sd == 0 || math.IsNaN(sd) {
		sd = (hi - lo) / 10
	}
	bw := sd * math.Pow(float64(len(sample)), -0.2)
	const grid = 200
	pts := make(plotter.XYs, grid)
	norm := 1 / (float64(len(sample)) * bw * math.Sqrt(2*math.Pi))
	for g := 0; g < grid; g++ {
		x := lo + (hi-lo)*float64(g)/float64(grid-1)
		d := 0.0
		for _, v := range sample {
			u := (x - v) / bw
			d += math.Exp(-0.5 * u * u)
		}
		pts[g] = plotter.XY{X: x, Y: d * norm * scale}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("density line: %w", err)
	}
	line.Color = kdeColor
	line.Width = vg.Points(1.5)
	return line, nil
}

func floatsRange(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}
