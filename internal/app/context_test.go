package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/airq-cli/internal/dataset"
	"github.com/KaramelBytes/airq-cli/internal/model"
)

const header = "No,year,month,day,hour,PM2.5,PM10,SO2,NO2,CO,O3,TEMP,PRES,DEWP,RAIN,wd,WSPM,station"

// writeStation writes n hourly rows where PM2.5 = 0.5*PM10 + 10. Row 2 has
// a missing O3 and row 3 a missing wind direction.
func writeStation(t *testing.T, dir, station string, n int) {
	t.Helper()
	dirs := []string{"N", "E", "S", "W"}
	var b strings.Builder
	b.WriteString(header + "\n")
	for i := 0; i < n; i++ {
		pm10 := 20 + float64(i%17)*6
		o3 := "50"
		wd := dirs[i%4]
		if i == 2 {
			o3 = "NA"
		}
		if i == 3 {
			wd = ""
		}
		fmt.Fprintf(&b, "%d,2014,%d,%d,%d,%g,%g,5,20,400,%s,%d,1015,-5,0,%s,%g,%s\n",
			i+1, 1+i/48%12, 1+(i/24)%2, i%24, 0.5*pm10+10, pm10, o3, i%15, wd, 1+float64(i%5)*0.5, station)
	}
	if err := os.WriteFile(filepath.Join(dir, "PRSA_Data_"+station+".csv"), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newContext(t *testing.T, models ...model.Kind) *Context {
	t.Helper()
	dir := t.TempDir()
	writeStation(t, dir, "Aotizhongxin", 60)
	opt := model.DefaultOptions()
	opt.Forest.Trees = 10
	c, err := New(context.Background(), Config{DataDir: dir, HeadRows: 5, MaxScatterPoints: 100, Models: models, Model: opt})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func sample() model.FeatureValues {
	return model.FeatureValues{TEMP: 5, PRES: 1015, DEWP: -5, RAIN: 0, WSPM: 2, PM10: 80, SO2: 5, NO2: 20, CO: 400, O3: 50, WD: "N"}
}

func TestShapeOnKnownDimensions(t *testing.T) {
	c := newContext(t)
	out, err := c.Overview("Shape")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Rows: 60, Columns: 19" {
		t.Fatalf("shape = %q", out)
	}
}

func TestPredictUnsupportedModel(t *testing.T) {
	c := newContext(t)
	_, err := c.Predict("Unsupported", sample())
	var uoe *model.UnsupportedOptionError
	if !errors.As(err, &uoe) {
		t.Fatalf("expected UnsupportedOptionError, got %v", err)
	}
}

func TestPredictLinearRecoversRelationship(t *testing.T) {
	c := newContext(t)
	got, err := c.Predict("Linear Regression", sample())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-50) > 1e-6 {
		t.Fatalf("prediction = %v, want 50", got)
	}
	text, err := c.PredictText("Linear Regression", sample())
	if err != nil {
		t.Fatal(err)
	}
	if text != "Predicted PM2.5: 50.00 µg/m³" {
		t.Fatalf("text = %q", text)
	}
}

func TestPredictRejectsInvalidInput(t *testing.T) {
	c := newContext(t)
	f := sample()
	f.PM10 = math.NaN()
	_, err := c.Predict("Random Forest", f)
	var ve *model.ValidationError
	if !errors.As(err, &ve) || ve.Field != "PM10" {
		t.Fatalf("expected PM10 ValidationError, got %v", err)
	}
}

func TestUnfittedModel(t *testing.T) {
	c := newContext(t, model.LinearRegressionKind)
	_, err := c.Predict("rf", sample())
	var nf *model.NotFittedError
	if !errors.As(err, &nf) || nf.Kind != model.RandomForestKind {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
}

func TestMetricsAreFlaggedInSample(t *testing.T) {
	c := newContext(t)
	ms := c.Metrics()
	if len(ms) != 2 {
		t.Fatalf("metrics = %d", len(ms))
	}
	for _, m := range ms {
		if !m.InSample || m.Rows != c.TrainingRows() {
			t.Fatalf("metrics not in-sample: %+v", m)
		}
		if !strings.Contains(m.String(), "in-sample (optimistic)") {
			t.Fatalf("metrics text unlabeled: %s", m)
		}
	}
}

func TestHoldoutMetricsSkipFullDataFits(t *testing.T) {
	dir := t.TempDir()
	writeStation(t, dir, "Aotizhongxin", 60)
	c, err := New(context.Background(), Config{DataDir: dir, ReportsOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Fitted()) != 0 {
		t.Fatalf("reports-only context fitted %v", c.Fitted())
	}
	hold, err := c.HoldoutMetrics([]model.Kind{model.LinearRegressionKind}, 0.25, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hold) != 1 || hold[0].Model != model.LinearRegressionKind.String() {
		t.Fatalf("holdout = %+v", hold)
	}
	if hold[0].InSample || hold[0].Rows >= c.TrainingRows() {
		t.Fatalf("holdout scored training rows: %+v", hold[0])
	}
	if len(c.Fitted()) != 0 {
		t.Fatal("holdout scoring stored a pipeline")
	}
}

func TestWarningsSurfaceImputation(t *testing.T) {
	c := newContext(t)
	w := strings.Join(c.Warnings(), "\n")
	if !strings.Contains(w, "imputed 1 missing O3") || !strings.Contains(w, "imputed 1 missing wd") {
		t.Fatalf("warnings = %q", w)
	}
	if c.CleanStats().TotalImputed() != 2 {
		t.Fatalf("imputed = %d", c.CleanStats().TotalImputed())
	}
}

func TestWarningsSurfaceAllMissingAndInvalidDates(t *testing.T) {
	dir := t.TempDir()
	rows := []string{
		"1,2013,3,1,5,10,20,4,7,300,NA,-1,1023,-18,0,N,4,Gucheng",
		"2,2013,2,30,0,11,21,4,7,300,NA,-1,1023,-18,0,N,4,Gucheng",
	}
	body := header + "\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, "PRSA_Data_Gucheng.csv"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(context.Background(), Config{DataDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w := strings.Join(c.Warnings(), "\n")
	for _, want := range []string{
		"column O3 has no values; left missing",
		"1 rows have invalid calendar fields and no timestamp",
	} {
		if !strings.Contains(w, want) {
			t.Fatalf("warnings missing %q: %q", want, w)
		}
	}
	if c.TrainingRows() != 0 || len(c.Fitted()) != 0 {
		t.Fatalf("no row is complete, nothing should be fitted")
	}
}

func TestChartDispatch(t *testing.T) {
	c := newContext(t, model.LinearRegressionKind)
	if _, err := c.Chart("Average PM2.5 by Month"); err != nil {
		t.Fatal(err)
	}
	var uoe *model.UnsupportedOptionError
	if _, err := c.Chart("Unknown"); !errors.As(err, &uoe) {
		t.Fatalf("expected UnsupportedOptionError, got %v", err)
	}
}

func TestEmptyDirectory(t *testing.T) {
	c, err := New(context.Background(), Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(c.Fitted()) != 0 || c.TrainingRows() != 0 {
		t.Fatalf("expected no fitted pipelines")
	}
	if _, err := c.Overview("Summary"); !errors.Is(err, dataset.ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
	if !strings.Contains(c.Home(), "Loaded 0 rows") {
		t.Fatal("home text missing row count")
	}
}

func TestHomeListsMonitoringSites(t *testing.T) {
	home := newContext(t, model.LinearRegressionKind).Home()
	for _, want := range []string{"### Background", "Monitoring sites (12)", "- Gucheng", "- Wanshouxigong", "- Huairou", "Loaded 60 rows"} {
		if !strings.Contains(home, want) {
			t.Errorf("home missing %q", want)
		}
	}
}
