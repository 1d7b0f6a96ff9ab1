package model

import (
	"fmt"
	"math"
	"math/rand"
)

// Metrics are regression accuracy scores for one pipeline.
type Metrics struct {
	Model string  `json:"model"`
	Rows  int     `json:"rows"`
	RMSE  float64 `json:"rmse"`
	MAE   float64 `json:"mae"`
	R2    float64 `json:"r2"`
	// InSample marks scores computed on the rows the model was fitted on.
	// They overstate accuracy on unseen data.
	InSample bool `json:"in_sample"`
}

// Scope labels how the scores were obtained.
func (m Metrics) Scope() string {
	if m.InSample {
		return "in-sample (optimistic)"
	}
	return "held-out"
}

func (m Metrics) String() string {
	return fmt.Sprintf("%s [%s, n=%d]: RMSE=%.4f MAE=%.4f R²=%.4f", m.Model, m.Scope(), m.Rows, m.RMSE, m.MAE, m.R2)
}

// Score compares predictions with observed values.
func Score(y, pred []float64) (rmse, mae, r2 float64) {
	n := float64(len(y))
	if n == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= n
	var ssRes, ssTot, absSum float64
	for i, v := range y {
		d := v - pred[i]
		ssRes += d * d
		absSum += math.Abs(d)
		ssTot += (v - mean) * (v - mean)
	}
	rmse = math.Sqrt(ssRes / n)
	mae = absSum / n
	switch {
	case ssTot > 0:
		r2 = 1 - ssRes/ssTot
	case ssRes == 0:
		r2 = 1
	default:
		r2 = 0
	}
	return rmse, mae, r2
}

// Evaluate scores p on ts. Pass inSample=true when ts is the training data.
func Evaluate(p *Pipeline, ts *TrainingSet, inSample bool) Metrics {
	rmse, mae, r2 := Score(ts.Target, p.PredictSet(ts))
	return Metrics{Model: p.Kind.String(), Rows: ts.Len(), RMSE: rmse, MAE: mae, R2: r2, InSample: inSample}
}

// TrainTestSplit shuffles row indices with seed and holds out frac of them.
func TrainTestSplit(n int, frac float64, seed int64) (train, test []int, err error) {
	if frac <= 0 || frac >= 1 {
		return nil, nil, fmt.Errorf("holdout fraction %.3f must be in (0, 1)", frac)
	}
	nTest := int(math.Round(float64(n) * frac))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("cannot hold out %.0f%% of %d rows", frac*100, n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// HoldoutEvaluate fits kind on a shuffled training split and scores the
// held-out rows, giving a generalization estimate instead of the in-sample one.
func HoldoutEvaluate(kind Kind, ts *TrainingSet, frac float64, seed int64, opt Options) (Metrics, error) {
	train, test, err := TrainTestSplit(ts.Len(), frac, seed)
	if err != nil {
		return Metrics{}, err
	}
	p, err := Fit(kind, ts.Subset(train), opt)
	if err != nil {
		return Metrics{}, err
	}
	return Evaluate(p, ts.Subset(test), false), nil
}
