package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Kind selects a regression estimator.
type Kind int

const (
	LinearRegressionKind Kind = iota + 1
	RandomForestKind
)

var kindLabels = map[Kind]string{
	LinearRegressionKind: "Linear Regression",
	RandomForestKind:     "Random Forest",
}

var kindAliases = map[string]Kind{
	"linear regression": LinearRegressionKind,
	"linear":            LinearRegressionKind,
	"lr":                LinearRegressionKind,
	"random forest":     RandomForestKind,
	"forest":            RandomForestKind,
	"rf":                RandomForestKind,
}

func (k Kind) String() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists the supported estimators in display order.
func Kinds() []Kind { return []Kind{LinearRegressionKind, RandomForestKind} }

// KindLabels lists the display labels of Kinds.
func KindLabels() []string {
	out := make([]string, 0, len(kindLabels))
	for _, k := range Kinds() {
		out = append(out, k.String())
	}
	return out
}

// ParseKind resolves a model label such as "Random Forest".
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	key = strings.ReplaceAll(key, "-", " ")
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	return 0, &UnsupportedOptionError{Option: "model", Value: s, Supported: KindLabels()}
}

// Regressor is a fitted estimator over encoded rows.
type Regressor interface {
	Fit(X *mat.Dense, y []float64) error
	Predict(x []float64) float64
}

// Options configures estimator construction.
type Options struct {
	Forest ForestOptions
}

// DefaultOptions returns the default estimator settings.
func DefaultOptions() Options {
	return Options{Forest: DefaultForestOptions()}
}

// NewRegressor constructs an unfitted estimator for kind.
func NewRegressor(kind Kind, opt Options) (Regressor, error) {
	switch kind {
	case LinearRegressionKind:
		return &LinearRegression{}, nil
	case RandomForestKind:
		return NewRandomForest(opt.Forest), nil
	default:
		return nil, &UnsupportedOptionError{Option: "model", Value: kind.String(), Supported: KindLabels()}
	}
}

// Pipeline composes the column transform with a fitted estimator.
// It is read-only after Fit and safe for concurrent Predict calls.
type Pipeline struct {
	ID          string
	Kind        Kind
	FittedAt    time.Time
	TrainRows   int
	Transformer *ColumnTransformer
	Regressor   Regressor
}

// Fit builds the transform from ts and trains a kind estimator on all rows.
func Fit(kind Kind, ts *TrainingSet, opt Options) (*Pipeline, error) {
	if ts == nil || ts.Len() == 0 {
		return nil, ErrNoRows
	}
	reg, err := NewRegressor(kind, opt)
	if err != nil {
		return nil, err
	}
	ct := FitTransformer(ts)
	if err := reg.Fit(ct.Design(ts), ts.Target); err != nil {
		return nil, fmt.Errorf("fit %s: %w", kind, err)
	}
	return &Pipeline{
		ID:          uuid.NewString(),
		Kind:        kind,
		FittedAt:    time.Now(),
		TrainRows:   ts.Len(),
		Transformer: ct,
		Regressor:   reg,
	}, nil
}

// Predict validates f and returns the predicted PM2.5 concentration.
func (p *Pipeline) Predict(f FeatureValues) (float64, error) {
	if err := Validate(f); err != nil {
		return 0, err
	}
	return p.Regressor.Predict(p.Transformer.Transform(f.Numeric(), strings.TrimSpace(f.WD))), nil
}

// PredictSet scores every row of ts without validation.
func (p *Pipeline) PredictSet(ts *TrainingSet) []float64 {
	out := make([]float64, ts.Len())
	row := make([]float64, p.Transformer.Width())
	for i := range out {
		p.Transformer.TransformInto(row, ts.Numeric[i], ts.Categories[i])
		out[i] = p.Regressor.Predict(row)
	}
	return out
}

// Coefficients returns the intercept and the linear terms keyed by encoded
// feature name, on the standardized scale. ok is false for estimators
// without linear terms.
func (p *Pipeline) Coefficients() (intercept float64, coef map[string]float64, ok bool) {
	lr, isLinear := p.Regressor.(*LinearRegression)
	if !isLinear {
		return 0, nil, false
	}
	names := p.Transformer.FeatureNames()
	coef = make(map[string]float64, len(names))
	for i, name := range names {
		if i < len(lr.Coef) {
			coef[name] = lr.Coef[i]
		}
	}
	return lr.Intercept, coef, true
}

// FormatPrediction renders a prediction the way the front end displays it.
func FormatPrediction(v float64) string {
	return fmt.Sprintf("Predicted PM2.5: %.2f µg/m³", v)
}
