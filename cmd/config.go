package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/airq-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set airq configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if _, err := requireConfig(); err != nil {
			fmt.Fprintf(out, "No config loaded: %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "head_rows: %d\n", cfg.HeadRows)
		fmt.Fprintf(out, "max_scatter_points: %d\n", cfg.MaxScatterPoints)
		fmt.Fprintf(out, "charts_dir: %s\n", cfg.ChartsDir)
		fmt.Fprintf(out, "seed: %d\n", cfg.Seed)
		fmt.Fprintf(out, "forest_trees: %d\n", cfg.ForestTrees)
		if cfg.ForestMaxDepth > 0 {
			fmt.Fprintf(out, "forest_max_depth: %d\n", cfg.ForestMaxDepth)
		}
		fmt.Fprintf(out, "forest_min_samples_leaf: %d\n", cfg.ForestMinSamplesLeaf)
		if cfg.ForestMaxFeatures > 0 {
			fmt.Fprintf(out, "forest_max_features: %d\n", cfg.ForestMaxFeatures)
		}
		if cfg.ForestMaxSamples > 0 {
			fmt.Fprintf(out, "forest_max_samples: %d\n", cfg.ForestMaxSamples)
		}
		if cfg.ForestWorkers > 0 {
			fmt.Fprintf(out, "forest_workers: %d\n", cfg.ForestWorkers)
		}
		fmt.Fprintf(out, "holdout_fraction: %.3f\n", cfg.HoldoutFraction)
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		atoi := func(min int) (int, error) {
			i, err := strconv.Atoi(val)
			if err != nil || i < min {
				return 0, fmt.Errorf("invalid int for %s: %v (must be >= %d)", key, val, min)
			}
			return i, nil
		}
		var err error
		switch key {
		case "data_dir":
			cfg.DataDir = val
		case "charts_dir":
			cfg.ChartsDir = val
		case "listen_addr":
			cfg.ListenAddr = val
		case "head_rows":
			cfg.HeadRows, err = atoi(0)
		case "max_scatter_points":
			cfg.MaxScatterPoints, err = atoi(0)
		case "seed":
			i, perr := strconv.ParseInt(val, 10, 64)
			if perr != nil {
				return fmt.Errorf("invalid int for seed: %w", perr)
			}
			cfg.Seed = i
		case "forest_trees":
			cfg.ForestTrees, err = atoi(1)
		case "forest_max_depth":
			cfg.ForestMaxDepth, err = atoi(0)
		case "forest_min_samples_leaf":
			cfg.ForestMinSamplesLeaf, err = atoi(1)
		case "forest_max_features":
			cfg.ForestMaxFeatures, err = atoi(0)
		case "forest_max_samples":
			cfg.ForestMaxSamples, err = atoi(0)
		case "forest_workers":
			cfg.ForestWorkers, err = atoi(0)
		case "holdout_fraction":
			f, perr := strconv.ParseFloat(val, 64)
			if perr != nil || f <= 0 || f >= 1 {
				return fmt.Errorf("invalid float for holdout_fraction: %v (must be in (0, 1))", val)
			}
			cfg.HoldoutFraction = f
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
