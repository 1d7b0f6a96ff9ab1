package cmd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/airq-cli/internal/model"
	"github.com/KaramelBytes/airq-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	trModels  []string
	trHoldout bool
	trFrac    float64
	trJSON    bool
)

// trainReport is the --json output. Models lists the full-data pipelines and
// is empty for --holdout, whose scores come from split fits that are not kept.
type trainReport struct {
	Rows     int             `json:"rows"`
	Usable   int             `json:"usable_rows"`
	Scope    string          `json:"scope"`
	Warnings []string        `json:"warnings,omitempty"`
	Models   []pipelineInfo  `json:"models,omitempty"`
	Metrics  []model.Metrics `json:"metrics"`
}

type pipelineInfo struct {
	ID           string             `json:"id"`
	Model        string             `json:"model"`
	FittedAt     string             `json:"fitted_at"`
	Rows         int                `json:"rows"`
	Intercept    *float64           `json:"intercept,omitempty"`
	Coefficients map[string]float64 `json:"coefficients,omitempty"`
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the models and report their accuracy",
	Long: `Fit the selected models on every complete row and report RMSE, MAE and R².
Scores are in-sample (optimistic) unless --holdout is given, in which case each
model is refitted on a shuffled split and scored on the held-out rows.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds, err := parseKinds(trModels)
		if err != nil {
			return err
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}
		frac := c.HoldoutFraction
		if cmd.Flags().Changed("holdout-fraction") {
			frac = trFrac
		}
		// --holdout scores split fits only, so the full-data fits are skipped
		ac, err := buildContext(cmd, trHoldout, kinds...)
		if err != nil {
			return err
		}
		if ac.TrainingRows() == 0 {
			return model.ErrNoRows
		}

		var metrics []model.Metrics
		scope := "in-sample (optimistic)"
		if trHoldout {
			scope = "held-out"
			metrics, err = ac.HoldoutMetrics(kinds, frac, c.Seed)
			if err != nil {
				return err
			}
		} else {
			metrics = ac.Metrics()
		}

		out := cmd.OutOrStdout()
		if trJSON {
			rep := trainReport{
				Rows: ac.Table().Rows(), Usable: ac.TrainingRows(), Scope: scope,
				Warnings: ac.Warnings(), Metrics: metrics,
			}
			for _, k := range ac.Fitted() {
				p, _ := ac.Pipeline(k)
				info := pipelineInfo{
					ID: p.ID, Model: k.String(), FittedAt: p.FittedAt.UTC().Format(time.RFC3339), Rows: p.TrainRows,
				}
				if icpt, coef, ok := p.Coefficients(); ok {
					info.Intercept = &icpt
					info.Coefficients = coef
				}
				rep.Models = append(rep.Models, info)
			}
			b, err := utils.PrettyJSON(rep)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if trHoldout {
			successf(out, "Scored %d model(s) on a %.0f%% held-out split of %d rows", len(metrics), frac*100, ac.TrainingRows())
		} else {
			successf(out, "Fitted %d model(s) on %d rows", len(ac.Fitted()), ac.TrainingRows())
		}
		for _, m := range metrics {
			fmt.Fprintln(out, m.String())
		}
		if !trHoldout {
			warnf(out, "in-sample scores overstate accuracy on new data; use --holdout for a held-out estimate")
		}
		return nil
	},
}

// parseKinds resolves model selectors; none selects every kind.
func parseKinds(names []string) ([]model.Kind, error) {
	var kinds []model.Kind
	seen := map[model.Kind]bool{}
	for _, n := range names {
		k, err := model.ParseKind(n)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringSliceVarP(&trModels, "model", "m", nil, "models to fit: linear|forest (repeatable; default both)")
	trainCmd.Flags().BoolVar(&trHoldout, "holdout", false, "score on a held-out split instead of the training rows")
	trainCmd.Flags().Float64Var(&trFrac, "holdout-fraction", 0.2, "held-out share of rows (overrides config)")
	trainCmd.Flags().BoolVar(&trJSON, "json", false, "print the report as JSON")
}
