package cmd

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/airq-cli/internal/model"
	"github.com/KaramelBytes/airq-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	prModel string
	prWD    string
	prJSON  bool
	// prValues holds the numeric feature flags keyed by column name.
	prValues = map[string]*float64{}
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict PM2.5 for one set of weather and pollutant readings",
	Example: `  airq predict --model "Random Forest" --TEMP 12 --PRES 1015 --DEWP -3 --RAIN 0 \
    --WSPM 2.1 --PM10 95 --SO2 8 --NO2 45 --CO 900 --O3 40 --wd NE`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := model.ParseKind(prModel)
		if err != nil {
			return err
		}
		f, err := featureFlags(cmd)
		if err != nil {
			return err
		}
		// reject bad input before paying for a fit
		if err := model.Validate(f); err != nil {
			return err
		}
		ac, err := buildContext(cmd, false, kind)
		if err != nil {
			return err
		}
		v, err := ac.Predict(kind.String(), f)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if prJSON {
			b, err := utils.PrettyJSON(map[string]interface{}{
				"model":      kind.String(),
				"features":   f,
				"prediction": v,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintln(out, model.FormatPrediction(v))
		return nil
	},
}

// featureFlags collects the eleven predictors; every numeric flag is required.
func featureFlags(cmd *cobra.Command) (model.FeatureValues, error) {
	for _, name := range model.NumericFeatures {
		if !cmd.Flags().Changed(name) {
			return model.FeatureValues{}, &model.ValidationError{Field: name, Value: math.NaN(), Reason: "value is required (--" + name + ")"}
		}
	}
	return model.FeatureValues{
		TEMP: *prValues["TEMP"], PRES: *prValues["PRES"], DEWP: *prValues["DEWP"],
		RAIN: *prValues["RAIN"], WSPM: *prValues["WSPM"], PM10: *prValues["PM10"],
		SO2: *prValues["SO2"], NO2: *prValues["NO2"], CO: *prValues["CO"], O3: *prValues["O3"],
		WD: prWD,
	}, nil
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVarP(&prModel, "model", "m", "Linear Regression", "model: \"Linear Regression\" | \"Random Forest\"")
	predictCmd.Flags().StringVar(&prWD, "wd", "", "wind direction, e.g. N, NE, WSW")
	predictCmd.Flags().BoolVar(&prJSON, "json", false, "print the prediction as JSON")
	for _, name := range model.NumericFeatures {
		v := new(float64)
		prValues[name] = v
		predictCmd.Flags().Float64Var(v, name, 0, name+" reading")
	}
}
