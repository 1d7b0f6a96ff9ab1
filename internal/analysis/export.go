package analysis

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/airq-cli/internal/dataset"
	"github.com/KaramelBytes/airq-cli/internal/model"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetStatistics   = "Statistics"
	SheetCorrelations = "Correlations"
	SheetMetrics      = "Model Metrics"
)

// ExportWorkbook writes descriptive statistics, the correlation matrix and
// model metrics to an xlsx file at path. metrics may be empty.
func ExportWorkbook(path string, t *dataset.Table, metrics []model.Metrics) error {
	stats, err := Describe(t, dataset.PollutantWeatherColumns...)
	if err != nil {
		return err
	}
	corr, err := Correlation(t, dataset.PollutantWeatherColumns)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetStatistics); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetCorrelations, SheetMetrics} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	header := []interface{}{"Column", "Count", "Missing", "Mean", "Median", "Min", "Max", "Std Dev", "Skewness", "Kurtosis", "Outliers", "Max |z|"}
	rows := [][]interface{}{header}
	for _, s := range stats {
		rows = append(rows, []interface{}{
			s.Name, s.Count, s.Missing, cellFloat(s.Mean), cellFloat(s.Median), cellFloat(s.Min),
			cellFloat(s.Max), cellFloat(s.Std), cellFloat(s.Skew), cellFloat(s.Kurtosis), s.OutliersCount, cellFloat(s.OutliersMaxAbsZ),
		})
	}
	if err := writeRows(f, SheetStatistics, rows); err != nil {
		return err
	}

	rows = rows[:0]
	top := []interface{}{""}
	for _, c := range corr.Columns {
		top = append(top, c)
	}
	rows = append(rows, top)
	for i, c := range corr.Columns {
		row := []interface{}{c}
		for _, v := range corr.Values[i] {
			row = append(row, cellFloat(v))
		}
		rows = append(rows, row)
	}
	// strongest pairs below the matrix, after one blank row
	rows = append(rows, []interface{}{}, []interface{}{"Strongest correlations", "", "r"})
	for _, p := range corr.TopPairs(TopCorrelationPairs) {
		rows = append(rows, []interface{}{p.A, p.B, cellFloat(p.R)})
	}
	if err := writeRows(f, SheetCorrelations, rows); err != nil {
		return err
	}

	rows = [][]interface{}{{"Model", "Scope", "Rows", "RMSE", "MAE", "R2"}}
	for _, m := range metrics {
		rows = append(rows, []interface{}{m.Model, m.Scope(), m.Rows, cellFloat(m.RMSE), cellFloat(m.MAE), cellFloat(m.R2)})
	}
	if err := writeRows(f, SheetMetrics, rows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

// cellFloat leaves NaN cells blank.
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
