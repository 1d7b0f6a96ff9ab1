package model

import (
	"fmt"
	"math"
	"strings"
)

type bounds struct{ lo, hi float64 }

// featureBounds are physically plausible ranges for prediction inputs.
var featureBounds = map[string]bounds{
	"TEMP": {-60, 60},
	"PRES": {800, 1200},
	"DEWP": {-60, 60},
	"RAIN": {0, math.Inf(1)},
	"WSPM": {0, math.Inf(1)},
	"PM10": {0, math.Inf(1)},
	"SO2":  {0, math.Inf(1)},
	"NO2":  {0, math.Inf(1)},
	"CO":   {0, math.Inf(1)},
	"O3":   {0, math.Inf(1)},
}

// Validate rejects inputs that would silently produce a meaningless prediction.
func Validate(f FeatureValues) error {
	for i, v := range f.Numeric() {
		name := NumericFeatures[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: name, Value: v, Reason: "value must be a finite number"}
		}
		b := featureBounds[name]
		if v < b.lo || v > b.hi {
			reason := "value must be non-negative"
			if !math.IsInf(b.hi, 1) {
				reason = fmt.Sprintf("value out of range [%g, %g]", b.lo, b.hi)
			}
			return &ValidationError{Field: name, Value: v, Reason: reason}
		}
	}
	if strings.TrimSpace(f.WD) == "" {
		return &ValidationError{Field: CategoricalFeature, Value: math.NaN(), Reason: "wind direction is required"}
	}
	return nil
}
