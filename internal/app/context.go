// Package app wires the observation table, reports and fitted pipelines into
// one application context built at startup and read-only afterwards.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KaramelBytes/airq-cli/internal/analysis"
	"github.com/KaramelBytes/airq-cli/internal/dataset"
	"github.com/KaramelBytes/airq-cli/internal/model"
	"golang.org/x/sync/errgroup"
)

// Config controls how the context is built.
type Config struct {
	DataDir          string
	HeadRows         int
	MaxScatterPoints int
	// Models lists the pipelines to fit; empty fits every kind.
	Models []model.Kind
	// ReportsOnly skips model fitting for commands that never predict.
	ReportsOnly bool
	Model       model.Options
}

// Context owns the cleaned table and the fitted pipelines. All methods are
// safe for concurrent use because nothing is mutated after construction.
type Context struct {
	cfg       Config
	table     *dataset.Table
	stats     dataset.CleanStats
	training  *model.TrainingSet
	pipelines map[model.Kind]*model.Pipeline
}

// New loads every CSV in cfg.DataDir, cleans the result and fits the
// configured pipelines.
func New(ctx context.Context, cfg Config) (*Context, error) {
	raw, err := dataset.Load(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return NewFromTable(ctx, raw, cfg)
}

// NewFromTable cleans raw and fits the configured pipelines on it. A table
// without complete rows yields a context with no fitted pipelines.
func NewFromTable(ctx context.Context, raw *dataset.Table, cfg Config) (*Context, error) {
	clean, stats := dataset.Clean(raw)
	c := &Context{cfg: cfg, table: clean, stats: stats, pipelines: map[model.Kind]*model.Pipeline{}}

	ts, err := model.Split(clean)
	if errors.Is(err, model.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	c.training = ts
	if cfg.ReportsOnly {
		return c, nil
	}

	kinds := cfg.Models
	if len(kinds) == 0 {
		kinds = model.Kinds()
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range kinds {
		k := k
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := model.Fit(k, ts, cfg.Model)
			if err != nil {
				return err
			}
			mu.Lock()
			c.pipelines[k] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

// Table returns the cleaned observation table.
func (c *Context) Table() *dataset.Table { return c.table }

// CleanStats reports what cleaning changed.
func (c *Context) CleanStats() dataset.CleanStats { return c.stats }

// TrainingRows is the number of complete rows the pipelines were fitted on.
func (c *Context) TrainingRows() int {
	if c.training == nil {
		return 0
	}
	return c.training.Len()
}

// Pipeline returns the fitted pipeline for kind.
func (c *Context) Pipeline(kind model.Kind) (*model.Pipeline, error) {
	p, ok := c.pipelines[kind]
	if !ok {
		return nil, &model.NotFittedError{Kind: kind}
	}
	return p, nil
}

// Fitted lists the fitted kinds in display order.
func (c *Context) Fitted() []model.Kind {
	var out []model.Kind
	for _, k := range model.Kinds() {
		if _, ok := c.pipelines[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Overview renders the overview report selected by option.
func (c *Context) Overview(option string) (string, error) {
	kind, err := analysis.ParseOverview(option)
	if err != nil {
		return "", err
	}
	return analysis.Overview(c.table, kind, analysis.OverviewOptions{HeadRows: c.cfg.HeadRows})
}

// Chart builds the chart selected by label.
func (c *Context) Chart(label string) (*analysis.Figure, error) {
	kind, err := analysis.ParseChart(label)
	if err != nil {
		return nil, err
	}
	return analysis.Chart(c.table, kind, analysis.ChartOptions{MaxScatterPoints: c.cfg.MaxScatterPoints})
}

// Predict scores f with the pipeline named modelName.
func (c *Context) Predict(modelName string, f model.FeatureValues) (float64, error) {
	kind, err := model.ParseKind(modelName)
	if err != nil {
		return 0, err
	}
	p, err := c.Pipeline(kind)
	if err != nil {
		return 0, err
	}
	return p.Predict(f)
}

// PredictText is Predict rendered for display.
func (c *Context) PredictText(modelName string, f model.FeatureValues) (string, error) {
	v, err := c.Predict(modelName, f)
	if err != nil {
		return "", err
	}
	return model.FormatPrediction(v), nil
}

// Metrics scores every fitted pipeline on its own training rows. The
// results are flagged in-sample and overstate accuracy on new data.
func (c *Context) Metrics() []model.Metrics {
	var out []model.Metrics
	for _, k := range c.Fitted() {
		out = append(out, model.Evaluate(c.pipelines[k], c.training, true))
	}
	return out
}

// HoldoutMetrics fits each kind on a shuffled split of the training rows and
// scores the held-out rows. Empty kinds scores every kind. It does not need
// or touch the full-data pipelines.
func (c *Context) HoldoutMetrics(kinds []model.Kind, frac float64, seed int64) ([]model.Metrics, error) {
	if c.training == nil {
		return nil, model.ErrNoRows
	}
	if len(kinds) == 0 {
		kinds = model.Kinds()
	}
	var out []model.Metrics
	for _, k := range kinds {
		m, err := model.HoldoutEvaluate(k, c.training, frac, seed, c.cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("%s holdout: %w", k, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// ExportWorkbook writes statistics, correlations and in-sample metrics to path.
func (c *Context) ExportWorkbook(path string) error {
	return analysis.ExportWorkbook(path, c.table, c.Metrics())
}

// Warnings describes data-quality fixes applied while cleaning.
func (c *Context) Warnings() []string {
	var out []string
	s := c.stats
	for _, name := range s.ImputedColumns() {
		n := s.Imputed[name]
		if v, ok := s.Medians[name]; ok {
			out = append(out, fmt.Sprintf("imputed %d missing %s values with median %.4g", n, name, v))
		} else if v, ok := s.Modes[name]; ok {
			out = append(out, fmt.Sprintf("imputed %d missing %s values with mode %q", n, name, v))
		}
	}
	for _, name := range s.AllMissing {
		out = append(out, fmt.Sprintf("column %s has no values; left missing", name))
	}
	if s.Duplicates > 0 {
		out = append(out, fmt.Sprintf("dropped %d duplicate rows", s.Duplicates))
	}
	if s.InvalidTimestamps > 0 {
		out = append(out, fmt.Sprintf("%d rows have invalid calendar fields and no timestamp", s.InvalidTimestamps))
	}
	return out
}
