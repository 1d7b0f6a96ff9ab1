package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/airq-cli/internal/analysis"
	"github.com/KaramelBytes/airq-cli/internal/utils"
	"github.com/spf13/cobra"
)

var edaOutputPath string

var edaCmd = &cobra.Command{
	Use:   "eda <chart>",
	Short: "Render one exploratory chart as PNG",
	Long: "Render one exploratory chart of the cleaned table as PNG. Charts: " +
		strings.Join(analysis.ChartLabels(), ", ") + ".",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := strings.Join(args, " ")
		kind, err := analysis.ParseChart(label)
		if err != nil {
			return err
		}
		ac, err := buildContext(cmd, true)
		if err != nil {
			return err
		}
		fig, err := ac.Chart(label)
		if err != nil {
			return err
		}
		out := edaOutputPath
		if out == "" {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			out = filepath.Join(c.ChartsDir, kind.Slug()+".png")
		}
		if err := utils.SafeWriteTo(out, fig); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		successf(cmd.OutOrStdout(), "Wrote %s to %s", kind, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(edaCmd)
	edaCmd.Flags().StringVarP(&edaOutputPath, "output", "o", "", "PNG path (default <charts_dir>/<chart>.png)")
}
