package model

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func baseFeatures() FeatureValues {
	return FeatureValues{
		TEMP: 10, PRES: 1012, DEWP: -3, RAIN: 0, WSPM: 2.1,
		PM10: 40, SO2: 6, NO2: 30, CO: 700, O3: 55, WD: "NW",
	}
}

func syntheticSet(n int, seed int64) *TrainingSet {
	rng := rand.New(rand.NewSource(seed))
	dirs := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	ts := &TrainingSet{}
	for i := 0; i < n; i++ {
		f := baseFeatures()
		f.TEMP = rng.Float64()*40 - 10
		f.PRES = 990 + rng.Float64()*40
		f.WSPM = rng.Float64() * 6
		f.PM10 = rng.Float64() * 200
		f.WD = dirs[rng.Intn(len(dirs))]
		y := 0.6*f.PM10 - 3*f.WSPM + rng.NormFloat64()
		ts.Numeric = append(ts.Numeric, f.Numeric())
		ts.Categories = append(ts.Categories, f.WD)
		ts.Target = append(ts.Target, y)
	}
	return ts
}

func TestTransformerUnseenCategoryIsAllZero(t *testing.T) {
	ts := &TrainingSet{
		Numeric:    [][]float64{baseFeatures().Numeric(), baseFeatures().Numeric()},
		Categories: []string{"N", "S"},
		Target:     []float64{1, 2},
	}
	ct := FitTransformer(ts)
	if ct.Width() != len(NumericFeatures)+2 {
		t.Fatalf("width = %d", ct.Width())
	}
	row := ct.Transform(baseFeatures().Numeric(), "ESE")
	for k, v := range row[len(NumericFeatures):] {
		if v != 0 {
			t.Fatalf("one-hot slot %d = %v for unseen category", k, v)
		}
	}
	row = ct.Transform(baseFeatures().Numeric(), "S")
	if row[len(NumericFeatures)+1] != 1 || row[len(NumericFeatures)] != 0 {
		t.Fatalf("unexpected one-hot block %v", row[len(NumericFeatures):])
	}
	names := ct.FeatureNames()
	if names[len(names)-1] != "wd_S" {
		t.Fatalf("feature names = %v", names)
	}
}

func TestTransformerZeroVarianceIsCenteredOnly(t *testing.T) {
	a, b := baseFeatures(), baseFeatures()
	b.TEMP = 20
	ts := &TrainingSet{
		Numeric:    [][]float64{a.Numeric(), b.Numeric()},
		Categories: []string{"N", "N"},
		Target:     []float64{1, 2},
	}
	ct := FitTransformer(ts)
	if ct.Scales[1] != 1 {
		t.Fatalf("PRES scale = %v, want 1 for constant column", ct.Scales[1])
	}
	if math.Abs(ct.Scales[0]-5) > 1e-12 {
		t.Fatalf("TEMP scale = %v, want population std 5", ct.Scales[0])
	}
	c := baseFeatures()
	c.PRES = 1013
	row := ct.Transform(c.Numeric(), "N")
	if row[1] != 1 {
		t.Fatalf("PRES encoded = %v, want 1", row[1])
	}
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite encoding %v", row)
		}
	}
}

func TestLinearPipelineRecoversCoefficient(t *testing.T) {
	ts := &TrainingSet{}
	for _, temp := range []float64{0, 5, 15} {
		f := baseFeatures()
		f.TEMP = temp
		ts.Numeric = append(ts.Numeric, f.Numeric())
		ts.Categories = append(ts.Categories, f.WD)
		ts.Target = append(ts.Target, 2*temp+5)
	}
	p, err := Fit(LinearRegressionKind, ts, DefaultOptions())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	held := baseFeatures()
	held.TEMP = 30
	got, err := p.Predict(held)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(got-65) > 1e-6 {
		t.Fatalf("prediction = %v, want 65", got)
	}
	m := Evaluate(p, ts, true)
	if m.RMSE > 1e-9 || math.Abs(m.R2-1) > 1e-9 {
		t.Fatalf("in-sample metrics = %+v", m)
	}
	if m.Scope() != "in-sample (optimistic)" {
		t.Fatalf("scope = %q", m.Scope())
	}
	if p.ID == "" || p.TrainRows != 3 {
		t.Fatalf("pipeline metadata = %+v", p)
	}

	intercept, coef, ok := p.Coefficients()
	if !ok {
		t.Fatal("linear pipeline should expose coefficients")
	}
	// standardized slope divided by the scale recovers the raw slope
	if got := coef["TEMP"] / p.Transformer.Scales[0]; math.Abs(got-2) > 1e-9 {
		t.Fatalf("TEMP slope = %v, want 2", got)
	}
	if math.Abs(coef["PM10"]) > 1e-9 || math.Abs(coef["wd_"+baseFeatures().WD]) > 1e-9 {
		t.Fatalf("constant features should get zero weight: %v", coef)
	}
	if math.Abs(intercept-(2*20.0/3+5)) > 1e-9 {
		t.Fatalf("intercept = %v, want mean target", intercept)
	}
	if len(coef) != p.Transformer.Width() {
		t.Fatalf("coefficients = %d, want %d", len(coef), p.Transformer.Width())
	}
}

func TestForestDeterministicForSeed(t *testing.T) {
	ts := syntheticSet(120, 7)
	opt := DefaultOptions()
	opt.Forest.Trees = 15
	opt.Forest.Seed = 99
	opt.Forest.Workers = 4
	a, err := Fit(RandomForestKind, ts, opt)
	if err != nil {
		t.Fatalf("fit a: %v", err)
	}
	opt.Forest.Workers = 1
	b, err := Fit(RandomForestKind, ts, opt)
	if err != nil {
		t.Fatalf("fit b: %v", err)
	}
	for i := 0; i < 10; i++ {
		f := baseFeatures()
		f.PM10 = float64(i * 15)
		pa, err := a.Predict(f)
		if err != nil {
			t.Fatal(err)
		}
		pb, _ := b.Predict(f)
		if math.Abs(pa-pb) > 1e-9 {
			t.Fatalf("row %d: %v != %v", i, pa, pb)
		}
	}
	if rf := a.Regressor.(*RandomForest); rf.Trees() != 15 {
		t.Fatalf("trees = %d", rf.Trees())
	}
}

func TestForestFitsSignal(t *testing.T) {
	ts := syntheticSet(200, 3)
	opt := DefaultOptions()
	opt.Forest.Trees = 20
	p, err := Fit(RandomForestKind, ts, opt)
	if err != nil {
		t.Fatal(err)
	}
	m := Evaluate(p, ts, true)
	if m.R2 < 0.8 {
		t.Fatalf("in-sample R² = %v, expected a close fit", m.R2)
	}
}

func TestHoldoutEvaluate(t *testing.T) {
	ts := syntheticSet(100, 11)
	m, err := HoldoutEvaluate(LinearRegressionKind, ts, 0.2, 1, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if m.InSample || m.Rows != 20 {
		t.Fatalf("holdout metrics = %+v", m)
	}
	if m.R2 < 0.9 {
		t.Fatalf("held-out R² = %v", m.R2)
	}
	if _, err := HoldoutEvaluate(LinearRegressionKind, ts, 1.5, 1, DefaultOptions()); err == nil {
		t.Fatal("expected error for fraction outside (0, 1)")
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"Linear Regression": LinearRegressionKind,
		"random  forest":    RandomForestKind,
		"rf":                RandomForestKind,
		"linear-regression": LinearRegressionKind,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v", in, got, err)
		}
	}
	_, err := ParseKind("Unsupported")
	var uoe *UnsupportedOptionError
	if !errors.As(err, &uoe) {
		t.Fatalf("expected UnsupportedOptionError, got %v", err)
	}
	if uoe.Option != "model" || len(uoe.Supported) != 2 {
		t.Fatalf("unexpected error detail %+v", uoe)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	if err := Validate(baseFeatures()); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	cases := []struct {
		name  string
		mut   func(*FeatureValues)
		field string
	}{
		{"nan", func(f *FeatureValues) { f.CO = math.NaN() }, "CO"},
		{"inf", func(f *FeatureValues) { f.TEMP = math.Inf(1) }, "TEMP"},
		{"negative", func(f *FeatureValues) { f.RAIN = -1 }, "RAIN"},
		{"pressure", func(f *FeatureValues) { f.PRES = 200 }, "PRES"},
		{"wind", func(f *FeatureValues) { f.WD = "  " }, "wd"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := baseFeatures()
			tc.mut(&f)
			err := Validate(f)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("field = %s, want %s", ve.Field, tc.field)
			}
		})
	}
}

func TestFitEmptySet(t *testing.T) {
	if _, err := Fit(LinearRegressionKind, &TrainingSet{}, DefaultOptions()); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}
