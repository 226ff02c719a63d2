// Package velocity computes time-normalised rolling averages over the
// historical fact series of an EAN.
package velocity

import (
	"context"
	"time"

	"invplan-backend/internal/models"
	"invplan-backend/internal/numeric"
	"invplan-backend/internal/store"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Metric selects one numeric column of a fact version.
type Metric struct {
	Name  string
	Value func(*models.SKUFact) float64
}

var (
	WarehouseTotalStock = Metric{Name: "warehouse_total_stock", Value: func(f *models.SKUFact) float64 { return f.WarehouseTotalStock }}
	QuickCommTotalStock = Metric{Name: "quick_comm_total_stock", Value: func(f *models.SKUFact) float64 { return f.QuickCommTotalStock }}
	TotalStock          = Metric{Name: "total_stock", Value: func(f *models.SKUFact) float64 { return f.TotalStock }}
)

type Calculator struct {
	facts store.FactRepo
	now   func() time.Time
}

func NewCalculator(facts store.FactRepo) *Calculator {
	return &Calculator{facts: facts, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source. Tests only.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// RollingAverage sums metric over every version created in the trailing
// windowDays and divides by windowDays, so missing days count as zero.
// No rows, or a non-positive window, yields 0.
func (c *Calculator) RollingAverage(ctx context.Context, ean string, windowDays int, metric Metric) (float64, error) {
	if windowDays <= 0 {
		return 0, nil
	}
	since := c.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	rows, err := c.facts.History(ctx, ean, since)
	if err != nil {
		return 0, err
	}
	return Average(rows, windowDays, metric), nil
}

// Average is the pure part of RollingAverage.
func Average(rows []models.SKUFact, windowDays int, metric Metric) float64 {
	if windowDays <= 0 || len(rows) == 0 {
		return 0
	}
	sum := decimal.Zero
	for i := range rows {
		sum = sum.Add(decimal.NewFromFloat(numeric.ToNumber(metric.Value(&rows[i]))))
	}
	return sum.Div(decimal.NewFromInt(int64(windowDays))).InexactFloat64()
}

// maxConcurrentWindows caps the lookups Windows keeps in flight.
const maxConcurrentWindows = 4

// Windows computes one rolling average per window, at most
// maxConcurrentWindows at a time.
func (c *Calculator) Windows(ctx context.Context, ean string, metric Metric, days []int) ([]float64, error) {
	out := make([]float64, len(days))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWindows)
	for i, d := range days {
		i, d := i, d
		g.Go(func() error {
			v, err := c.RollingAverage(gctx, ean, d, metric)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
