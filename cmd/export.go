package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exOutputPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write statistics, correlations and model metrics to an Excel workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exOutputPath == "" {
			return fmt.Errorf("--output is required")
		}
		ac, err := buildContext(cmd, false)
		if err != nil {
			return err
		}
		if err := ac.ExportWorkbook(exOutputPath); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		successf(cmd.OutOrStdout(), "Wrote workbook to %s", exOutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exOutputPath, "output", "o", "airq-report.xlsx", "workbook path")
}
