// Package rollup refreshes the derived totals and rolling speeds on the
// latest fact version of every EAN after the sources have merged.
package rollup

import (
	"context"
	"fmt"

	"invplan-backend/internal/facts"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"
	"invplan-backend/internal/store"
	"invplan-backend/internal/velocity"
)

// Result counts EANs refreshed in one pass.
type Result struct {
	Processed int   `json:"processed"`
	Failed    int   `json:"failed"`
	Systemic  error `json:"-"`
}

type Service struct {
	facts   store.FactRepo
	calc    *velocity.Calculator
	windows []int
	log     *logger.Logger
}

// New builds the service. windows holds the short, medium and long
// rolling windows in days.
func New(facts store.FactRepo, calc *velocity.Calculator, windows []int, baseLog *logger.Logger) *Service {
	return &Service{
		facts:   facts,
		calc:    calc,
		windows: windows,
		log:     baseLog.With("component", "Rollup"),
	}
}

// Run refreshes every EAN, or only ean when it is not empty. A systemic
// store failure stops the pass.
func (s *Service) Run(ctx context.Context, ean string) (Result, error) {
	var res Result
	if len(s.windows) != len(facts.RollingColumns.Warehouse) {
		return res, fmt.Errorf("rollup: want %d rolling windows, got %d", len(facts.RollingColumns.Warehouse), len(s.windows))
	}

	rows, err := s.facts.LatestPerEAN(ctx, ean)
	if err != nil {
		return res, fmt.Errorf("rollup: load latest facts: %w", err)
	}

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row := &rows[i]
		if err := s.refresh(ctx, row); err != nil {
			res.Failed++
			s.log.Warn("rollup failed", "ean", row.EANCode, "error", err)
			if store.IsSystemic(err) {
				res.Systemic = err
				return res, nil
			}
			continue
		}
		res.Processed++
	}
	s.log.Info("rollup finished", "processed", res.Processed, "failed", res.Failed)
	return res, nil
}

// refresh writes totals first so the rolling averages read the new
// values of the latest version.
func (s *Service) refresh(ctx context.Context, row *models.SKUFact) error {
	facts.Recompute(row)
	if err := s.facts.UpdateColumns(ctx, row, facts.TotalColumns); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}

	wh, err := s.calc.Windows(ctx, row.EANCode, velocity.WarehouseTotalStock, s.windows)
	if err != nil {
		return fmt.Errorf("warehouse windows: %w", err)
	}
	qc, err := s.calc.Windows(ctx, row.EANCode, velocity.QuickCommTotalStock, s.windows)
	if err != nil {
		return fmt.Errorf("quick-comm windows: %w", err)
	}

	SetRolling(row, wh, qc)
	cols := append(append([]string{}, facts.RollingColumns.Warehouse...), facts.RollingColumns.QuickComm...)
	if err := s.facts.UpdateColumns(ctx, row, cols); err != nil {
		return fmt.Errorf("write rolling speeds: %w", err)
	}
	return nil
}

// SetRolling stores short, medium and long averages on row.
func SetRolling(row *models.SKUFact, warehouse, quickComm []float64) {
	at := func(v []float64, i int) float64 {
		if i < len(v) {
			return v[i]
		}
		return 0
	}
	row.WarehouseSpeed7d = at(warehouse, 0)
	row.WarehouseSpeed15d = at(warehouse, 1)
	row.WarehouseSpeed30d = at(warehouse, 2)
	row.QuickCommSpeed7d = at(quickComm, 0)
	row.QuickCommSpeed15d = at(quickComm, 1)
	row.QuickCommSpeed30d = at(quickComm, 2)
}
