package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/airq-cli/internal/analysis"
	"github.com/KaramelBytes/airq-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	ovOutputPath string
	ovHeadRows   int
)

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Show the landing page and the available options",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ac, err := buildContext(cmd, true)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ac.Home())
		return nil
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview <option>",
	Short: "Render a data overview report",
	Long: "Render one data overview report of the cleaned table. Options: " +
		strings.Join(analysis.OverviewKinds(), ", ") + ".",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		option := strings.Join(args, " ")
		if _, err := analysis.ParseOverview(option); err != nil {
			return err
		}
		if cmd.Flags().Changed("head-rows") {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			c.HeadRows = ovHeadRows
		}
		ac, err := buildContext(cmd, true)
		if err != nil {
			return err
		}
		out, err := ac.Overview(option)
		if err != nil {
			return err
		}
		if ovOutputPath != "" {
			if err := utils.SafeWriteFile(ovOutputPath, []byte(out+"\n")); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			successf(cmd.OutOrStdout(), "Wrote %s to %s", option, ovOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(homeCmd)
	rootCmd.AddCommand(overviewCmd)
	overviewCmd.Flags().StringVarP(&ovOutputPath, "output", "o", "", "optional path to write the report")
	overviewCmd.Flags().IntVar(&ovHeadRows, "head-rows", 5, "rows shown by the Head report (overrides config)")
}
