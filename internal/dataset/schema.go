package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gota/gota/series"
)

// Column names of the hourly station observations.
const (
	ColNo       = "No"
	ColYear     = "year"
	ColMonth    = "month"
	ColDay      = "day"
	ColHour     = "hour"
	ColPM25     = "PM2.5"
	ColPM10     = "PM10"
	ColSO2      = "SO2"
	ColNO2      = "NO2"
	ColCO       = "CO"
	ColO3       = "O3"
	ColTemp     = "TEMP"
	ColPres     = "PRES"
	ColDewp     = "DEWP"
	ColRain     = "RAIN"
	ColWD       = "wd"
	ColWSPM     = "WSPM"
	ColStation  = "station"
	ColDatetime = "datetime"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindString
	KindTime
)

// DType reports the pandas-style dtype label used in overview reports.
func (k Kind) DType() string {
	switch k {
	case KindInt:
		return "int64"
	case KindString:
		return "object"
	case KindTime:
		return "datetime64[ns]"
	default:
		return "float64"
	}
}

type columnSpec struct {
	name     string
	kind     Kind
	required bool
}

// schema lists the expected columns in the order the station files use.
var schema = []columnSpec{
	{ColNo, KindInt, false},
	{ColYear, KindInt, true},
	{ColMonth, KindInt, true},
	{ColDay, KindInt, true},
	{ColHour, KindInt, true},
	{ColPM25, KindFloat, true},
	{ColPM10, KindFloat, true},
	{ColSO2, KindFloat, true},
	{ColNO2, KindFloat, true},
	{ColCO, KindFloat, true},
	{ColO3, KindFloat, true},
	{ColTemp, KindFloat, true},
	{ColPres, KindFloat, true},
	{ColDewp, KindFloat, true},
	{ColRain, KindFloat, true},
	{ColWD, KindString, true},
	{ColWSPM, KindFloat, true},
	{ColStation, KindString, false},
}

// PollutantWeatherColumns are the eleven measurement columns used for
// statistics, correlations and modelling.
var PollutantWeatherColumns = []string{
	ColPM25, ColPM10, ColSO2, ColNO2, ColCO, ColO3, ColTemp, ColPres, ColDewp, ColRain, ColWSPM,
}

// RequiredColumns returns the names every input file must carry.
func RequiredColumns() []string {
	var out []string
	for _, c := range schema {
		if c.required {
			out = append(out, c.name)
		}
	}
	return out
}

func lookupSpec(name string) (columnSpec, bool) {
	for _, c := range schema {
		if c.name == name {
			return c, true
		}
	}
	return columnSpec{}, false
}

// gotaTypes maps header names to gota series types for dataframe.WithTypes.
// Integer calendar fields are read as floats so missing cells become NaN.
func gotaTypes(header []string) map[string]series.Type {
	types := make(map[string]series.Type, len(header))
	for _, h := range header {
		spec, _ := lookupSpec(h)
		if spec.kind == KindString {
			types[h] = series.String
		} else {
			types[h] = series.Float
		}
	}
	return types
}

// ValidateHeader checks a file header against the expected schema.
func ValidateHeader(file string, header []string) error {
	seen := map[string]bool{}
	var unknown, dup []string
	for _, h := range header {
		h = strings.TrimSpace(h)
		if seen[h] {
			dup = append(dup, h)
			continue
		}
		seen[h] = true
		if _, ok := lookupSpec(h); !ok {
			unknown = append(unknown, h)
		}
	}
	var missing []string
	for _, name := range RequiredColumns() {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(unknown) == 0 && len(missing) == 0 && len(dup) == 0 {
		return nil
	}
	return &SchemaError{File: file, Missing: missing, Unknown: unknown, Duplicate: dup}
}

// sameColumnSet reports whether two headers carry the same names, ignoring order.
func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func describeHeader(h []string) string {
	return fmt.Sprintf("[%s]", strings.Join(h, ", "))
}
