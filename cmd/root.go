package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/KaramelBytes/airq-cli/internal/app"
	cfgpkg "github.com/KaramelBytes/airq-cli/internal/config"
	"github.com/KaramelBytes/airq-cli/internal/model"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Overrides (applied on top of config if set)
	flagDataDir string
	flagSeed    int64
	flagTrees   int
	flagWorkers int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "airq",
	Short: "airq: explore and predict PM2.5 air pollution from station data",
	Long: `airq loads hourly air-quality observations from a directory of station CSV
files, cleans them, renders overview reports and charts, and fits Linear
Regression and Random Forest models that predict PM2.5 from weather and
pollutant readings.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗ Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.airq/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory of station CSV files (overrides config)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "random forest seed (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagTrees, "trees", 0, "random forest size (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "concurrent tree fitting workers (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults via requireConfig
		warnf(os.Stderr, "failed to load config: %v", err)
		return
	}
	cfg = c
	applyOverrides(cfg)
}

// applyOverrides copies explicitly set persistent flags onto c.
func applyOverrides(c *cfgpkg.Global) {
	f := rootCmd.PersistentFlags()
	if f.Changed("data-dir") && flagDataDir != "" {
		c.DataDir = flagDataDir
	}
	if f.Changed("seed") {
		c.Seed = flagSeed
	}
	if f.Changed("trees") && flagTrees > 0 {
		c.ForestTrees = flagTrees
	}
	if f.Changed("workers") && flagWorkers > 0 {
		c.ForestWorkers = flagWorkers
	}
}

// requireConfig returns the loaded configuration or an error describing why
// it is unavailable.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	applyOverrides(c)
	cfg = c
	return cfg, nil
}

// modelOptions maps configuration onto pipeline options.
func modelOptions(c *cfgpkg.Global) model.Options {
	opt := model.DefaultOptions()
	opt.Forest.Seed = c.Seed
	opt.Forest.Trees = c.ForestTrees
	opt.Forest.MaxDepth = c.ForestMaxDepth
	opt.Forest.MinSamplesLeaf = c.ForestMinSamplesLeaf
	opt.Forest.MaxFeatures = c.ForestMaxFeatures
	opt.Forest.MaxSamples = c.ForestMaxSamples
	opt.Forest.Workers = c.ForestWorkers
	return opt
}

// buildContext loads the data directory and fits the requested models.
// reportsOnly skips fitting entirely.
func buildContext(cmd *cobra.Command, reportsOnly bool, kinds ...model.Kind) (*app.Context, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	if debug {
		log.Printf("loading %s (trees=%d seed=%d)", c.DataDir, c.ForestTrees, c.Seed)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ac, err := app.New(ctx, app.Config{
		DataDir:          c.DataDir,
		HeadRows:         c.HeadRows,
		MaxScatterPoints: c.MaxScatterPoints,
		Models:           kinds,
		ReportsOnly:      reportsOnly,
		Model:            modelOptions(c),
	})
	if err != nil {
		return nil, err
	}
	for _, w := range ac.Warnings() {
		warnf(cmd.ErrOrStderr(), "%s", w)
	}
	if debug {
		log.Printf("loaded %d rows, %d usable for modeling", ac.Table().Rows(), ac.TrainingRows())
	}
	return ac, nil
}

func warnf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", color.YellowString("⚠ Warning:"), fmt.Sprintf(format, args...))
}

func successf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}
