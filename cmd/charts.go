package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/airq-cli/internal/analysis"
	"github.com/KaramelBytes/airq-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	chOutDir string
	chOnly   []string
	chQuiet  bool
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Render every exploratory chart into a directory with progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := analysis.ChartKinds()
		if len(chOnly) > 0 {
			kinds = kinds[:0:0]
			seen := map[analysis.ChartKind]struct{}{}
			for _, s := range chOnly {
				k, err := analysis.ParseChart(s)
				if err != nil {
					return err
				}
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				kinds = append(kinds, k)
			}
		}
		dir := chOutDir
		if dir == "" {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			dir = c.ChartsDir
		}
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}

		ac, err := buildContext(cmd, true)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		total := len(kinds)
		for i, k := range kinds {
			if !chQuiet {
				fmt.Fprintf(out, "[%d/%d] Rendering %s...\n", i+1, total, k)
			}
			fig, err := ac.Chart(k.String())
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			path := filepath.Join(dir, k.Slug()+".png")
			if err := utils.SafeWriteTo(path, fig); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
		if !chQuiet {
			successf(out, "Wrote %d charts to %s", total, dir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
	chartsCmd.Flags().StringVarP(&chOutDir, "out-dir", "o", "", "output directory (default charts_dir from config)")
	chartsCmd.Flags().StringSliceVar(&chOnly, "only", nil, "comma-separated chart labels or slugs to render (repeatable)")
	chartsCmd.Flags().BoolVar(&chQuiet, "quiet", false, "suppress progress and non-essential output")
}
