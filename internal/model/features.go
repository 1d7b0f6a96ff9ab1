package model

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/airq-cli/internal/dataset"
)

// NumericFeatures are the standardized predictors, in design-matrix order.
var NumericFeatures = []string{
	dataset.ColTemp, dataset.ColPres, dataset.ColDewp, dataset.ColRain, dataset.ColWSPM,
	dataset.ColPM10, dataset.ColSO2, dataset.ColNO2, dataset.ColCO, dataset.ColO3,
}

// CategoricalFeature is one-hot encoded.
const CategoricalFeature = dataset.ColWD

// Target is the predicted column.
const Target = dataset.ColPM25

// FeatureValues carries the eleven predictors of one observation.
type FeatureValues struct {
	TEMP float64 `json:"TEMP"`
	PRES float64 `json:"PRES"`
	DEWP float64 `json:"DEWP"`
	RAIN float64 `json:"RAIN"`
	WSPM float64 `json:"WSPM"`
	PM10 float64 `json:"PM10"`
	SO2  float64 `json:"SO2"`
	NO2  float64 `json:"NO2"`
	CO   float64 `json:"CO"`
	O3   float64 `json:"O3"`
	WD   string  `json:"wd"`
}

// Numeric returns the numeric predictors in NumericFeatures order.
func (f FeatureValues) Numeric() []float64 {
	return []float64{f.TEMP, f.PRES, f.DEWP, f.RAIN, f.WSPM, f.PM10, f.SO2, f.NO2, f.CO, f.O3}
}

// TrainingSet is the feature/target view of a cleaned table.
type TrainingSet struct {
	Numeric    [][]float64
	Categories []string
	Target     []float64
}

// Len returns the number of rows.
func (ts *TrainingSet) Len() int { return len(ts.Target) }

// Subset returns the rows idx in order.
func (ts *TrainingSet) Subset(idx []int) *TrainingSet {
	out := &TrainingSet{
		Numeric:    make([][]float64, len(idx)),
		Categories: make([]string, len(idx)),
		Target:     make([]float64, len(idx)),
	}
	for j, i := range idx {
		out.Numeric[j] = ts.Numeric[i]
		out.Categories[j] = ts.Categories[i]
		out.Target[j] = ts.Target[i]
	}
	return out
}

// Split extracts predictors and target from t, dropping rows with any
// missing predictor or target.
func Split(t *dataset.Table) (*TrainingSet, error) {
	cols := make([][]float64, len(NumericFeatures))
	for i, name := range NumericFeatures {
		cols[i] = t.Floats(name)
		if cols[i] == nil {
			return nil, fmt.Errorf("feature column %s not found", name)
		}
	}
	cats := t.Strings(CategoricalFeature)
	if cats == nil {
		return nil, fmt.Errorf("feature column %s not found", CategoricalFeature)
	}
	y := t.Floats(Target)
	if y == nil {
		return nil, fmt.Errorf("target column %s not found", Target)
	}
	ts := &TrainingSet{}
	for r := 0; r < t.Rows(); r++ {
		if math.IsNaN(y[r]) || cats[r] == "" {
			continue
		}
		row := make([]float64, len(cols))
		ok := true
		for i, c := range cols {
			if math.IsNaN(c[r]) {
				ok = false
				break
			}
			row[i] = c[r]
		}
		if !ok {
			continue
		}
		ts.Numeric = append(ts.Numeric, row)
		ts.Categories = append(ts.Categories, cats[r])
		ts.Target = append(ts.Target, y[r])
	}
	if ts.Len() == 0 {
		return nil, ErrNoRows
	}
	return ts, nil
}
